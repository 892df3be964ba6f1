package main

import "leadflow/internal/app"

// @title           Leadflow API
// @version         1.0
// @description     Multi-tenant CRM: pipeline stages, round-robin lead assignment, conversion reporting.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in              header
// @name            Authorization
func main() {
	app.Run()
}
