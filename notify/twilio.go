package notify

import (
	"context"
	"errors"

	"github.com/bitmark-inc/logger"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"voting-ledger/fault"
)

// TwilioConfig holds the account credentials and sending number.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

// Configured reports whether every credential is present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.PhoneNumber != ""
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioGateway struct {
	api  messageCreator
	from string
	log  *logger.L
}

func NewTwilioGateway(cfg TwilioConfig) (*TwilioGateway, error) {
	if !cfg.Configured() {
		return nil, fault.ErrGatewayNotConfigured
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioGateway{
		api:  client.Api,
		from: cfg.PhoneNumber,
		log:  logger.New("notify"),
	}, nil
}

func (g *TwilioGateway) Name() string {
	return MethodTwilio
}

// Send creates the message through the Twilio REST API.
func (g *TwilioGateway) Send(ctx context.Context, to string, body string) (*Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(g.from)
	params.SetBody(body)

	resp, err := g.api.CreateMessage(params)
	if err != nil {
		g.log.Errorf("twilio send to %s failed: %s", to, err)
		return nil, &fault.GatewayError{Provider: MethodTwilio, Err: err}
	}
	if resp == nil || resp.Sid == nil {
		return nil, &fault.GatewayError{Provider: MethodTwilio, Err: errors.New("response without message sid")}
	}

	g.log.Infof("sms sent: to: %s  sid: %s", to, *resp.Sid)
	return &Delivery{
		Method: MethodTwilio,
		SID:    *resp.Sid,
		To:     to,
	}, nil
}
