package scamradar

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/alerts"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/stats"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
)

const alice entities.Principal = "alice-aa"

func newTestService() (*Service, *alerts.Service) {
	clk := clock.NewFake(time.Date(2024, 2, 14, 20, 0, 0, 0, time.UTC))
	clk.Step = time.Second
	alertSvc := alerts.NewService(stats.NewAggregator(clk), clk, logger.NewNop())
	return NewService(alertSvc, clk, logger.NewNop()), alertSvc
}

func TestAnalyzeBenignMessage(t *testing.T) {
	svc, alertSvc := newTestService()

	res, err := svc.AnalyzeMessage(context.Background(), alice, "see you at the cafe at noon", nil)
	require.NoError(t, err)

	assert.Empty(t, res.Indicators)
	assert.Equal(t, uint8(0), res.Confidence)
	assert.Equal(t, "Message appears safe, but always trust your instincts.", res.SuggestedResponse)

	list, err := alertSvc.List(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAnalyzeScamMessageRaisesAlert(t *testing.T) {
	svc, alertSvc := newTestService()
	sender := "matched 2 days ago"
	msg := "I love you so much, please send money urgent, I am stuck at the hospital"

	res, err := svc.AnalyzeMessage(context.Background(), alice, msg, &sender)
	require.NoError(t, err)

	assert.Equal(t, uint8(100), res.Confidence)
	assert.ElementsMatch(t, []entities.ScamIndicator{
		entities.IndicatorFinancialRequest,
		entities.IndicatorUrgencyPressure,
		entities.IndicatorRomanceManipulation,
		entities.IndicatorSobStory,
	}, res.Indicators)

	list, err := alertSvc.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	a := list[0]
	assert.Equal(t, entities.AlertChatScam, a.Type)
	assert.Equal(t, entities.SeverityCritical, a.Severity)
	assert.Equal(t, "100", a.Metadata["scam_confidence"])
	assert.Equal(t, msg, a.Metadata["original_message"])
	assert.Equal(t, sender, a.Metadata["sender_context"])
	require.NotNil(t, a.ChatContext)
	assert.Equal(t, msg, *a.ChatContext)
}

func TestHighButNotCriticalConfidence(t *testing.T) {
	svc, alertSvc := newTestService()

	// financial request (40) + sob story (30) + long message bonus (10) = 80
	msg := "can you send money, I had an accident " + fmt.Sprintf("%0500d", 0)
	res, err := svc.AnalyzeMessage(context.Background(), alice, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(80), res.Confidence)

	list, err := alertSvc.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entities.SeverityHigh, list[0].Severity)
}

func TestBelowThresholdDoesNotAlert(t *testing.T) {
	svc, alertSvc := newTestService()

	res, err := svc.AnalyzeMessage(context.Background(), alice, "please send money for the tickets", nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(40), res.Confidence)

	list, err := alertSvc.List(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLogIsBoundedAndNewestFirst(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for i := 0; i < MaxLogEntries+5; i++ {
		_, err := svc.AnalyzeMessage(ctx, alice, fmt.Sprintf("message %d", i), nil)
		require.NoError(t, err)
	}

	recent, err := svc.Recent(ctx, alice)
	require.NoError(t, err)
	require.Len(t, recent, MaxLogEntries)
	assert.Equal(t, fmt.Sprintf("message %d", MaxLogEntries+4), recent[0].TargetMessage)
	assert.Equal(t, "message 5", recent[len(recent)-1].TargetMessage)
}

func TestAnalyzeMessageValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AnalyzeMessage(ctx, alice, "  ", nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.AnalyzeMessage(ctx, entities.AnonymousPrincipal, "hi", nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}
