package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"dealer-workers/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/mail.v2"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

type MockEndpointStore struct {
	mock.Mock
}

func (m *MockEndpointStore) EndpointsForAccount(ctx context.Context, accountID string) ([]string, error) {
	args := m.Called(ctx, accountID)
	arns, _ := args.Get(0).([]string)
	return arns, args.Error(1)
}

func (m *MockEndpointStore) Remove(ctx context.Context, endpointARN string) error {
	return m.Called(ctx, endpointARN).Error(0)
}

type fakeDialer struct {
	sent []*mail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

// ==========================
// Push
// ==========================

func TestSNSPusher_SendPush(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to every endpoint", func(t *testing.T) {
		store := &MockEndpointStore{}
		store.On("EndpointsForAccount", ctx, "acc-1").Return([]string{"arn:a", "arn:b"}, nil)

		var targets []string
		client := &MockSNSService{PublishFunc: func(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			targets = append(targets, aws.ToString(in.TargetArn))
			assert.Equal(t, "json", aws.ToString(in.MessageStructure))

			var envelope map[string]string
			require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &envelope))
			assert.Equal(t, "Renove hoje", envelope["default"])
			assert.Contains(t, envelope["GCM"], "Sua assinatura")
			return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
		}}

		p := NewSNSPusher(client, store, logger.NewTestLogger(t))
		assert.True(t, p.SendPush(ctx, "acc-1", "Sua assinatura", "Renove hoje"))
		assert.Equal(t, []string{"arn:a", "arn:b"}, targets)
		store.AssertExpectations(t)
	})

	t.Run("no endpoints", func(t *testing.T) {
		store := &MockEndpointStore{}
		store.On("EndpointsForAccount", ctx, "acc-2").Return([]string{}, nil)
		client := &MockSNSService{PublishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
			t.Fatal("publish must not be called")
			return nil, nil
		}}

		p := NewSNSPusher(client, store, logger.NewNoOpLogger())
		assert.False(t, p.SendPush(ctx, "acc-2", "t", "b"))
	})

	t.Run("endpoint lookup fails", func(t *testing.T) {
		store := &MockEndpointStore{}
		store.On("EndpointsForAccount", ctx, "acc-3").Return(nil, errors.New("db down"))

		p := NewSNSPusher(&MockSNSService{}, store, logger.NewNoOpLogger())
		assert.False(t, p.SendPush(ctx, "acc-3", "t", "b"))
	})

	t.Run("partial failure still counts as delivered", func(t *testing.T) {
		store := &MockEndpointStore{}
		store.On("EndpointsForAccount", ctx, "acc-4").Return([]string{"arn:bad", "arn:good"}, nil)
		client := &MockSNSService{PublishFunc: func(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			if aws.ToString(in.TargetArn) == "arn:bad" {
				return nil, errors.New("throttled")
			}
			return &sns.PublishOutput{}, nil
		}}

		p := NewSNSPusher(client, store, logger.NewNoOpLogger())
		assert.True(t, p.SendPush(ctx, "acc-4", "t", "b"))
	})

	t.Run("disabled endpoint is pruned", func(t *testing.T) {
		store := &MockEndpointStore{}
		store.On("EndpointsForAccount", ctx, "acc-5").Return([]string{"arn:gone"}, nil)
		store.On("Remove", ctx, "arn:gone").Return(nil)
		client := &MockSNSService{PublishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, &snstypes.EndpointDisabledException{Message: aws.String("Endpoint is disabled")}
		}}

		p := NewSNSPusher(client, store, logger.NewNoOpLogger())
		assert.False(t, p.SendPush(ctx, "acc-5", "t", "b"))
		store.AssertExpectations(t)
	})
}

// ==========================
// Email
// ==========================

func TestSESMailer_SendEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("sent", func(t *testing.T) {
		client := &MockSESService{SendEmailFunc: func(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, "noreply@dealer.app", aws.ToString(in.Source))
			assert.Equal(t, []string{"maria@loja.com"}, in.Destination.ToAddresses)
			assert.Equal(t, "Assunto", aws.ToString(in.Message.Subject.Data))
			assert.Equal(t, "Corpo", aws.ToString(in.Message.Body.Text.Data))
			return &ses.SendEmailOutput{MessageId: aws.String("id-1")}, nil
		}}

		m := NewSESMailer(client, "noreply@dealer.app", logger.NewTestLogger(t))
		assert.Equal(t, EmailResult{Sent: true}, m.SendEmail(ctx, "maria@loja.com", "Assunto", "Corpo"))
	})

	t.Run("provider error", func(t *testing.T) {
		client := &MockSESService{SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected")
		}}

		res := NewSESMailer(client, "noreply@dealer.app", logger.NewNoOpLogger()).SendEmail(ctx, "maria@loja.com", "s", "b")
		assert.False(t, res.Sent)
		assert.Equal(t, "MessageRejected", res.Error)
	})

	t.Run("invalid recipient is not sent", func(t *testing.T) {
		client := &MockSESService{SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			t.Fatal("send must not be called")
			return nil, nil
		}}

		res := NewSESMailer(client, "noreply@dealer.app", logger.NewNoOpLogger()).SendEmail(ctx, "", "s", "b")
		assert.False(t, res.Sent)
		assert.Contains(t, res.Error, "invalid recipient")
	})
}

func TestSMTPMailer_SendEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("sent", func(t *testing.T) {
		d := &fakeDialer{}
		m := newSMTPMailer(d, "noreply@dealer.app", logger.NewTestLogger(t))

		res := m.SendEmail(ctx, "joao@autosul.com", "Sua assinatura vence em 3 dias", "Olá João")
		assert.True(t, res.Sent)
		require.Len(t, d.sent, 1)
		assert.Equal(t, []string{"joao@autosul.com"}, d.sent[0].GetHeader("To"))
		assert.Equal(t, []string{"Sua assinatura vence em 3 dias"}, d.sent[0].GetHeader("Subject"))
	})

	t.Run("dial failure", func(t *testing.T) {
		d := &fakeDialer{err: errors.New("dial tcp: connection refused")}
		res := newSMTPMailer(d, "noreply@dealer.app", logger.NewNoOpLogger()).SendEmail(ctx, "joao@autosul.com", "s", "b")
		assert.False(t, res.Sent)
		assert.Contains(t, res.Error, "connection refused")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		d := &fakeDialer{}
		res := newSMTPMailer(d, "noreply@dealer.app", logger.NewNoOpLogger()).SendEmail(cctx, "joao@autosul.com", "s", "b")
		assert.False(t, res.Sent)
		assert.Empty(t, d.sent)
	})
}

func TestDisabledChannels(t *testing.T) {
	assert.False(t, DisabledPusher{}.SendPush(context.Background(), "a", "t", "b"))
	assert.False(t, DisabledMailer{}.SendEmail(context.Background(), "a@b.co", "s", "b").Sent)
}
