package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/warnings"
)

type MockForwarder struct {
	mock.Mock
}

func (m *MockForwarder) Store(ctx context.Context, rec models.MaintenanceRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func sampleRecord() models.MaintenanceRecord {
	since := 320
	return models.MaintenanceRecord{
		AssetID:             "BL-7",
		SubmitterName:       "Riley",
		SubmitterRole:       models.RoleMechanic,
		Hours:               812,
		SubmittedAt:         time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC),
		HoursSinceOilChange: &since,
	}
}

func TestError_UnwrapAndWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap("mongo", cause)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "mongo", terr.Transport)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "mongo transport: connection refused", err.Error())

	assert.Same(t, err, Wrap("other", err))
	assert.NoError(t, Wrap("mongo", nil))
}

func TestMulti_ForwardsInOrder(t *testing.T) {
	rec := sampleRecord()
	var calls []string
	first := new(MockForwarder)
	first.On("Store", mock.Anything, rec).Run(func(mock.Arguments) { calls = append(calls, "first") }).Return(nil)
	second := new(MockForwarder)
	second.On("Store", mock.Anything, rec).Run(func(mock.Arguments) { calls = append(calls, "second") }).Return(nil)

	err := Multi{first, nil, second}.Store(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestMulti_StopsAtFirstError(t *testing.T) {
	rec := sampleRecord()
	first := new(MockForwarder)
	first.On("Store", mock.Anything, rec).Return(errors.New("disk full"))
	second := new(MockForwarder)

	err := Multi{first, second}.Store(context.Background(), rec)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.EqualError(t, terr.Err, "disk full")
	second.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
}

func TestAnnounce_LogsFailuresAndContinues(t *testing.T) {
	rec := sampleRecord()
	failing := new(MockForwarder)
	failing.On("Store", mock.Anything, rec).Return(errors.New("broker unreachable")).Once()
	next := new(MockForwarder)
	next.On("Store", mock.Anything, rec).Return(nil).Once()

	err := Announce{failing, nil, next}.Store(context.Background(), rec)

	assert.NoError(t, err)
	failing.AssertExpectations(t)
	next.AssertExpectations(t)
}

func TestChain(t *testing.T) {
	rec := sampleRecord()

	t.Run("durable first then announcements", func(t *testing.T) {
		var calls []string
		durable := new(MockForwarder)
		durable.On("Store", mock.Anything, rec).Run(func(mock.Arguments) { calls = append(calls, "durable") }).Return(nil)
		hook := new(MockForwarder)
		hook.On("Store", mock.Anything, rec).Run(func(mock.Arguments) { calls = append(calls, "hook") }).Return(errors.New("503"))
		broker := new(MockForwarder)
		broker.On("Store", mock.Anything, rec).Run(func(mock.Arguments) { calls = append(calls, "broker") }).Return(nil)

		err := Chain(durable, hook, nil, broker).Store(context.Background(), rec)

		require.NoError(t, err)
		assert.Equal(t, []string{"durable", "hook", "broker"}, calls)
	})

	t.Run("durable failure skips announcements", func(t *testing.T) {
		durable := new(MockForwarder)
		durable.On("Store", mock.Anything, rec).Return(errors.New("no primary"))
		hook := new(MockForwarder)

		err := Chain(durable, hook).Store(context.Background(), rec)

		var terr *Error
		require.ErrorAs(t, err, &terr)
		assert.EqualError(t, terr.Err, "no primary")
		hook.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	})

	t.Run("announcements only", func(t *testing.T) {
		hook := new(MockForwarder)
		hook.On("Store", mock.Anything, rec).Return(errors.New("timeout"))

		assert.NoError(t, Chain(nil, hook).Store(context.Background(), rec))
	})

	t.Run("nothing to forward to", func(t *testing.T) {
		assert.Nil(t, Chain(nil))
		assert.Nil(t, Chain(nil, nil))
	})
}

func TestWebhook_PostsDispatchEvent(t *testing.T) {
	var got DispatchEvent
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	hook := NewWebhook(WebhookConfig{URL: server.URL, Token: "runtime-token"})
	err := hook.Store(context.Background(), sampleRecord())

	require.NoError(t, err)
	assert.Equal(t, "Bearer runtime-token", auth)
	assert.Equal(t, "maintenance_record", got.EventType)
	assert.Equal(t, "BL-7", got.ClientPayload.AssetID)
	assert.Equal(t, 812, got.ClientPayload.Hours)
}

func TestWebhook_NoTokenNoHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, NewWebhook(WebhookConfig{URL: server.URL}).Store(context.Background(), sampleRecord()))
}

func TestWebhook_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewWebhook(WebhookConfig{URL: server.URL}).Store(context.Background(), sampleRecord())

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "webhook", terr.Transport)
	assert.Contains(t, terr.Error(), "401")
}

func TestWebhook_RetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hook := NewWebhook(WebhookConfig{URL: server.URL, RetryCount: 3})
	hook.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	require.NoError(t, hook.Store(context.Background(), sampleRecord()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestWebhook_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewWebhook(WebhookConfig{URL: url, Timeout: time.Second}).Store(context.Background(), sampleRecord())

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "webhook", terr.Transport)
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return newToken(p.err)
}

func TestMQTTPublisher_PublishesRecordAndWarnings(t *testing.T) {
	pub := &fakePublisher{}
	ev := warnings.At(time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC))
	p := NewMQTTPublisherWithClient(pub, "fleet/", 1, ev)

	require.NoError(t, p.Store(context.Background(), sampleRecord()))

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "fleet/records/BL-7", pub.msgs[0].topic)
	assert.False(t, pub.msgs[0].retained)
	var rec models.MaintenanceRecord
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &rec))
	assert.Equal(t, 812, rec.Hours)

	assert.Equal(t, "fleet/warnings/BL-7", pub.msgs[1].topic)
	assert.True(t, pub.msgs[1].retained)
	var state models.AssetWarningState
	require.NoError(t, json.Unmarshal(pub.msgs[1].payload, &state))
	assert.True(t, state.OilChangeOverdue)
}

func TestMQTTPublisher_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	p := NewMQTTPublisherWithClient(pub, "", 0, nil)

	err := p.Store(context.Background(), sampleRecord())

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "mqtt", terr.Transport)
	assert.Len(t, pub.msgs, 1)
	assert.Equal(t, "boomlift/records/BL-7", p.RecordTopic("BL-7"))
}
