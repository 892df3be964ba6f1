package services

import (
	"log"

	"leadflow/internal/models"
	"leadflow/internal/repositories"
)

// NotificationService fans "lead assigned" out to email and Telegram.
// Failures are logged and swallowed: notifications never fail the request.
type NotificationService struct {
	Users    repositories.UserRepository
	Email    EmailService     // nil = channel off
	Telegram *TelegramService // nil = channel off
}

func NewNotificationService(users repositories.UserRepository, email EmailService, telegram *TelegramService) *NotificationService {
	return &NotificationService{Users: users, Email: email, Telegram: telegram}
}

func (n *NotificationService) LeadAssigned(lead *models.Lead, res *models.AssignmentResult) {
	user, err := n.Users.GetByID(lead.TenantID, res.UserID)
	if err != nil || user == nil {
		log.Printf("[notify][assigned] tenant=%d user=%d lookup failed: %v", lead.TenantID, res.UserID, err)
		return
	}

	if n.Email != nil && user.Email != "" {
		if err := n.Email.SendLeadAssignedEmail(user.Email, user.Name, lead.Title, res.Reason); err != nil {
			log.Printf("[notify][assigned] email to %s failed: %v", user.Email, err)
		}
	}
	if n.Telegram != nil && user.NotifyTelegram {
		if err := n.Telegram.SendLeadAssigned(user.TelegramChatID, user.Name, lead.Title, res.Reason); err != nil {
			log.Printf("[notify][assigned] telegram to user=%d failed: %v", user.ID, err)
		}
	}
}
