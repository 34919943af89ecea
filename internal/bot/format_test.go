package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/09wizardguy/SignalBox/internal/application"
	commonerrors "github.com/09wizardguy/SignalBox/internal/common/errors"
)

func TestFormatDelay(t *testing.T) {
	tests := []struct {
		name     string
		ms       int64
		expected string
	}{
		{name: "zero", ms: 0, expected: "0s"},
		{name: "seconds", ms: 45000, expected: "45s"},
		{name: "minutes and seconds", ms: 90000, expected: "1m30s"},
		{name: "day and a half", ms: 36 * 3600 * 1000, expected: "1d12h"},
		{name: "full spread", ms: (8*24+1)*3600*1000 + 61000, expected: "1w1d1h1m1s"},
		{name: "sub-second rounds down", ms: 500, expected: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDelay(tt.ms))
		})
	}
}

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare id", input: "123456789012345678", expected: "123456789012345678"},
		{name: "mention", input: "<@123456789012345678>", expected: "123456789012345678"},
		{name: "nickname mention", input: "<@!123456789012345678>", expected: "123456789012345678"},
		{name: "surrounding whitespace", input: "  <@123>  ", expected: "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseUserID(tt.input))
		})
	}
}

func TestFormatServerInfo(t *testing.T) {
	assert.Equal(t, "🏰 Server: **Rail Yard**\n👥 Members: 42", formatServerInfo("Rail Yard", 42))
}

func TestBeginErrorReply(t *testing.T) {
	assert.Contains(t, beginErrorReply(application.ErrAlreadyPending), "pending")
	assert.Contains(t, beginErrorReply(application.ErrAlreadyApproved), "approved")
	assert.Contains(t, beginErrorReply(application.ErrAlreadyRejected), "rejected")
}

func TestDecisionErrorReply(t *testing.T) {
	assert.Contains(t, decisionErrorReply(application.ErrNotFound), "No application")
	assert.Contains(t, decisionErrorReply(application.ErrAlreadyProcessed), "already decided")
}

func TestBeginFailure_Classification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{name: "pending", err: application.ErrAlreadyPending, status: "pending"},
		{name: "approved", err: application.ErrAlreadyApproved, status: "approved"},
		{name: "rejected", err: application.ErrAlreadyRejected, status: "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serr := beginFailure("user-1", tt.err)
			assert.Equal(t, commonerrors.ErrCodeDuplicateApplication, serr.Code)
			assert.Contains(t, serr.Details, tt.status)
			assert.Equal(t, "INVALID_STATE_TRANSITION", commonerrors.GetErrorCategory(serr.Code))
		})
	}
}

func TestDecisionFailure_Classification(t *testing.T) {
	serr := decisionFailure("user-1", "", application.ErrNotFound)
	assert.Equal(t, commonerrors.ErrCodeApplicationNotFound, serr.Code)

	serr = decisionFailure("user-1", application.StatusApproved, application.ErrAlreadyProcessed)
	assert.Equal(t, commonerrors.ErrCodeAlreadyProcessed, serr.Code)
	assert.Contains(t, serr.Details, "approved")
}

func TestReviewEmbed_FillsEveryField(t *testing.T) {
	embed := reviewEmbed(application.Application{
		UserID:                  "user-1",
		Username:                "tester",
		MinecraftUsername:       "Notch",
		IsValidMinecraftAccount: true,
		Reason:                  "trains",
		Experience:              "lots",
		LikeTrains:              "Yes",
		CreatedAt:               1700000000000,
	})

	assert.Len(t, embed.Fields, 7)
	for _, field := range embed.Fields {
		assert.NotEmpty(t, field.Value, field.Name)
	}
}

func TestReviewEmbed_EmptyOptionalFieldsGetPlaceholder(t *testing.T) {
	embed := reviewEmbed(application.Application{UserID: "user-1", Username: "tester"})

	for _, field := range embed.Fields {
		assert.NotEmpty(t, field.Value, "discord rejects empty embed field values")
	}
}
