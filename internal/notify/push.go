package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"

	awsclients "dealer-workers/internal/common/aws"
	"dealer-workers/internal/common/errors"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/common/metrics"
	"dealer-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// EndpointStore resolves and prunes the device endpoints of an account.
type EndpointStore interface {
	EndpointsForAccount(ctx context.Context, accountID string) ([]string, error)
	Remove(ctx context.Context, endpointARN string) error
}

// SNSPusher publishes to SNS platform endpoints registered by the web app.
type SNSPusher struct {
	sns       awsclients.SNSService
	endpoints EndpointStore
	logger    logger.Logger
}

func NewSNSPusher(client awsclients.SNSService, endpoints EndpointStore, log logger.Logger) *SNSPusher {
	return &SNSPusher{
		sns:       client,
		endpoints: endpoints,
		logger:    log.WithFields(map[string]interface{}{"channel": models.ChannelPush}),
	}
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func buildPushMessage(title, body string) (string, error) {
	inner, err := json.Marshal(map[string]interface{}{
		"notification": pushPayload{Title: title, Body: body},
		"data":         pushPayload{Title: title, Body: body},
	})
	if err != nil {
		return "", err
	}
	apns, err := json.Marshal(map[string]interface{}{
		"aps": map[string]interface{}{
			"alert": pushPayload{Title: title, Body: body},
		},
	})
	if err != nil {
		return "", err
	}
	msg, err := json.Marshal(map[string]string{
		"default": body,
		"GCM":     string(inner),
		"APNS":    string(apns),
	})
	return string(msg), err
}

func (p *SNSPusher) SendPush(ctx context.Context, accountID, title, body string) bool {
	log := p.logger.WithFields(map[string]interface{}{"accountId": accountID})

	arns, err := p.endpoints.EndpointsForAccount(ctx, accountID)
	if err != nil {
		log.Warn("failed to load push endpoints", map[string]interface{}{"error": err.Error()})
		metrics.ChannelSendsTotal.WithLabelValues(models.ChannelPush, "error").Inc()
		return false
	}
	if len(arns) == 0 {
		log.Debug("account has no push endpoints", nil)
		metrics.ChannelSendsTotal.WithLabelValues(models.ChannelPush, "skipped").Inc()
		return false
	}

	message, err := buildPushMessage(title, body)
	if err != nil {
		log.Error("failed to build push message", map[string]interface{}{"error": err.Error()})
		return false
	}

	delivered := 0
	for _, arn := range arns {
		_, err := p.sns.Publish(ctx, &sns.PublishInput{
			TargetArn:        aws.String(arn),
			Message:          aws.String(message),
			MessageStructure: aws.String("json"),
		})
		if err == nil {
			delivered++
			continue
		}

		var disabled *snstypes.EndpointDisabledException
		if stderrors.As(err, &disabled) {
			log.Info("removing disabled push endpoint", map[string]interface{}{"endpointArn": arn})
			if rmErr := p.endpoints.Remove(ctx, arn); rmErr != nil {
				log.Warn("failed to remove push endpoint", map[string]interface{}{
					"endpointArn": arn,
					"error":       rmErr.Error(),
				})
			}
			continue
		}

		log.Warn("push publish failed", map[string]interface{}{
			"endpointArn": arn,
			"error":       errors.NewNotificationSendFailedError(models.ChannelPush, err).Details,
		})
	}

	if delivered == 0 {
		metrics.ChannelSendsTotal.WithLabelValues(models.ChannelPush, "failed").Inc()
		return false
	}

	metrics.ChannelSendsTotal.WithLabelValues(models.ChannelPush, "sent").Inc()
	log.Debug("push delivered", map[string]interface{}{
		"endpoints": len(arns),
		"delivered": delivered,
	})
	return true
}
