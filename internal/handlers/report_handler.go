package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"leadflow/internal/pdf"
	"leadflow/internal/repositories"
	"leadflow/internal/services"
)

type ReportHandler struct {
	Conversion *services.ConversionService
	Leads      repositories.LeadRepository
	Tenants    repositories.TenantRepository
	PDF        pdf.Generator // nil = export off
}

func NewReportHandler(conversion *services.ConversionService, leads repositories.LeadRepository, tenants repositories.TenantRepository, gen pdf.Generator) *ReportHandler {
	return &ReportHandler{Conversion: conversion, Leads: leads, Tenants: tenants, PDF: gen}
}

// parseRange reads from/to query params (YYYY-MM-DD); defaults to the
// trailing 30 days.
func parseRange(c *gin.Context) (time.Time, time.Time) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t.Add(24*time.Hour - time.Nanosecond) // inclusive end of day
		}
	}
	return from, to
}

// @Summary      Conversion report
// @Description  Win/loss rate derived from stage role flags over a date range
// @Tags         Reports
// @Produce      json
// @Param        from  query     string  false  "YYYY-MM-DD"
// @Param        to    query     string  false  "YYYY-MM-DD"
// @Success      200   {object}  services.ConversionReport
// @Router       /reports/conversion [get]
func (h *ReportHandler) GetConversion(c *gin.Context) {
	tenantID, _, _ := getIdentity(c)
	from, to := parseRange(c)

	report, err := h.Conversion.ComputeConversionRate(tenantID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetConversionPDF renders the same report as a downloadable PDF.
func (h *ReportHandler) GetConversionPDF(c *gin.Context) {
	if h.PDF == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "pdf export not configured"})
		return
	}
	tenantID, _, _ := getIdentity(c)
	from, to := parseRange(c)

	report, err := h.Conversion.ComputeConversionRate(tenantID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tenantName := ""
	if t, err := h.Tenants.GetByID(tenantID); err == nil && t != nil {
		tenantName = t.Name
	}

	path, err := h.PDF.GenerateConversionReport(pdf.ConversionReportData{
		TenantName:   tenantName,
		From:         from,
		To:           to,
		NewLeadCount: report.NewLeadCount,
		WonCount:     report.WonCount,
		LostCount:    report.LostCount,
		Rate:         report.Rate,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.FileAttachment(path, "conversion-report.pdf")
}

// FilterLeads: stage/owner filtered listing for reporting screens.
func (h *ReportHandler) FilterLeads(c *gin.Context) {
	tenantID, _, _ := getIdentity(c)
	stageID, _ := strconv.Atoi(c.DefaultQuery("stage_id", "0"))
	ownerID, _ := strconv.Atoi(c.DefaultQuery("owner_id", "0"))
	sortBy := c.DefaultQuery("sort_by", "created_at")
	order := c.DefaultQuery("order", "desc")
	limit, offset := pageParams(c)

	leads, err := h.Leads.Filter(tenantID, stageID, ownerID, sortBy, order, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, leads)
}
