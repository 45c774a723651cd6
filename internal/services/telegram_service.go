package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// TelegramService handles sending admin notifications to Telegram.
// Delivery is fire-and-forget: failures are logged, never retried.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// MilestoneNotification contains milestone data for the admin alert.
type MilestoneNotification struct {
	VenueName     string
	UserName      string
	MilestoneType string
	VisitCount    int
}

// NotifyMilestone alerts the admin chat that a guest reached a milestone.
func (s *TelegramService) NotifyMilestone(n MilestoneNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	userName := n.UserName
	if userName == "" {
		userName = "Guest"
	}

	message := fmt.Sprintf(`<b>🏆 NEW LOYALTY MILESTONE!</b>
<b>🍸 Venue:</b> %s
<b>👤 Guest:</b> %s
<b>⭐ Milestone:</b> %s
<b>🔢 Visits:</b> %d
━━━━━━━━━━━━━━━━━━`,
		n.VenueName,
		userName,
		n.MilestoneType,
		n.VisitCount,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// RewardNotification contains reward dispatch data.
type RewardNotification struct {
	VenueName     string
	UserName      string
	MilestoneType string
	TotalSpend    decimal.Decimal
}

// NotifyRewardSent reports that a milestone reward went out to a guest.
func (s *TelegramService) NotifyRewardSent(n RewardNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	userName := n.UserName
	if userName == "" {
		userName = "Guest"
	}

	message := fmt.Sprintf(`<b>🎁 REWARD SENT</b>
<b>🍸 Venue:</b> %s
<b>👤 Guest:</b> %s
<b>⭐ Milestone:</b> %s
<b>💰 Lifetime spend:</b> %s
━━━━━━━━━━━━━━━━━━`,
		n.VenueName,
		userName,
		n.MilestoneType,
		n.TotalSpend.StringFixed(2),
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
