package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-checkout/internal/catalog"
	"ms-checkout/internal/database/dbtest"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
	orderredis "ms-checkout/internal/order/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func setupCatalog(t *testing.T) (*catalog.Service, *bun.DB, dbtest.Fixture, *miniredis.Miniredis) {
	bunDB := dbtest.Open(t)
	fixture := dbtest.Seed(t, bunDB)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewWriterLogger(nil)
	svc := catalog.NewService(&catalog.DB{Bun: bunDB}, orderredis.NewRedis(client, log), log, 300*time.Second, time.Hour)
	return svc, bunDB, fixture, mr
}

func TestListEventsIsCached(t *testing.T) {
	svc, bunDB, f, mr := setupCatalog(t)
	ctx := context.Background()

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, mr.Exists("events:all"))
	assert.Equal(t, 300*time.Second, mr.TTL("events:all"))

	var jazz models.Event
	for _, e := range events {
		if e.ID == f.Event.ID {
			jazz = e
		}
	}
	require.Len(t, jazz.TicketTypes, 2)
	assert.Equal(t, "Regular", jazz.TicketTypes[0].Name)

	_, err = bunDB.NewUpdate().Model((*models.Event)(nil)).
		Set("name = ?", "Renamed").Where("id = ?", f.Event.ID).Exec(ctx)
	require.NoError(t, err)

	cached, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	for _, e := range cached {
		assert.NotEqual(t, "Renamed", e.Name)
	}

	svc.Invalidate(ctx)
	fresh, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	names := []string{fresh[0].Name, fresh[1].Name}
	assert.Contains(t, names, "Renamed")
}

func TestGetEvent(t *testing.T) {
	svc, _, f, mr := setupCatalog(t)
	ctx := context.Background()

	event, err := svc.GetEvent(ctx, "jakarta-jazz-night")
	require.NoError(t, err)
	assert.Equal(t, f.Event.ID, event.ID)
	assert.Len(t, event.TicketTypes, 2)
	assert.True(t, mr.Exists("event:jakarta-jazz-night"))

	again, err := svc.GetEvent(ctx, "jakarta-jazz-night")
	require.NoError(t, err)
	assert.Equal(t, event.Name, again.Name)

	_, err = svc.GetEvent(ctx, "no-such-event")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.False(t, mr.Exists("event:no-such-event"))
}

func TestListPaymentChannelsSkipsInactive(t *testing.T) {
	svc, bunDB, f, mr := setupCatalog(t)
	ctx := context.Background()

	_, err := bunDB.NewUpdate().Model((*models.PaymentChannel)(nil)).
		Set("is_active = ?", false).Where("id = ?", f.EWallet.ID).Exec(ctx)
	require.NoError(t, err)

	channels, err := svc.ListPaymentChannels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 3)
	for _, c := range channels {
		assert.NotEqual(t, f.EWallet.ID, c.ID)
	}
	assert.Equal(t, time.Hour, mr.TTL("payment_channels"))
}

func TestCustomFieldsAndInstructionsAreOrdered(t *testing.T) {
	svc, bunDB, f, _ := setupCatalog(t)
	ctx := context.Background()

	_, err := bunDB.NewInsert().Model(&[]models.EventCustomFieldOption{
		{CustomFieldID: f.ShirtSize.ID, OptionValue: "L", OptionLabel: "Large", SortOrder: 2},
		{CustomFieldID: f.ShirtSize.ID, OptionValue: "M", OptionLabel: "Medium", SortOrder: 1},
	}).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewInsert().Model(&[]models.PaymentInstruction{
		{PaymentChannelID: f.BankTransfer.ID, StepOrder: 2, Title: "Transfer"},
		{PaymentChannelID: f.BankTransfer.ID, StepOrder: 1, Title: "Open your banking app"},
		{PaymentChannelID: f.VA.ID, StepOrder: 1, Title: "Pay the VA"},
	}).Exec(ctx)
	require.NoError(t, err)

	fields, err := svc.ListCustomFields(ctx, f.Event.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Len(t, fields[0].Options, 2)
	assert.Equal(t, "M", fields[0].Options[0].OptionValue)

	steps, err := svc.ListPaymentInstructions(ctx, f.BankTransfer.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "Open your banking app", steps[0].Title)
	assert.Equal(t, "Transfer", steps[1].Title)
}

type brokenCache struct{}

func (brokenCache) GetJSON(context.Context, string, interface{}) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenCache) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(context.Context, ...string) error {
	return errors.New("connection refused")
}

func TestCacheFailureFallsBackToDatabase(t *testing.T) {
	bunDB := dbtest.Open(t)
	dbtest.Seed(t, bunDB)
	svc := catalog.NewService(&catalog.DB{Bun: bunDB}, brokenCache{}, logger.NewWriterLogger(nil), time.Minute, time.Minute)
	ctx := context.Background()

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	channels, err := svc.ListPaymentChannels(ctx)
	require.NoError(t, err)
	assert.Len(t, channels, 4)

	svc.Invalidate(ctx)
}
