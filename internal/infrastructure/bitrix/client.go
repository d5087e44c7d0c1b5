package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/crmgate/crmgate/pkg/helpers"
)

// ErrNotConfigured is returned when BITRIX_BASE_URL / BITRIX_WEBHOOK are not
// set. Callers decide whether that is fatal; contact sync treats it as a
// no-op, the deal endpoints surface it.
var ErrNotConfigured = errors.New("bitrix24 is not configured")

// Client is an outbound HTTP client for the Bitrix24 REST API. Every method
// hits <webhookBase>/<method> with a JSON POST body. Stage names resolved via
// crm.status.list are cached in Redis; the cache is best-effort and a miss
// never fails the calling operation.
type Client struct {
	webhookBase string
	httpClient  *http.Client
	rdb         *redis.Client
	logger      *logrus.Logger
}

func NewClient(webhookBase string, rdb *redis.Client, logger *logrus.Logger) *Client {
	return &Client{
		webhookBase: webhookBase,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		rdb:         rdb,
		logger:      logger,
	}
}

// Configured reports whether the client has a webhook endpoint to talk to.
func (c *Client) Configured() bool { return c.webhookBase != "" }

type apiEnvelope struct {
	Result           json.RawMessage `json:"result"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// call performs one REST call and decodes the result payload into out.
func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if body == nil {
		body = map[string]any{}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := c.webhookBase + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bitrix24 %s: %w", method, err)
	}
	defer func() { _ = res.Body.Close() }()

	var env apiEnvelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("bitrix24 %s: decode response: %w", method, err)
	}
	if res.StatusCode >= 400 || env.Error != "" {
		desc := env.ErrorDescription
		if desc == "" {
			desc = env.Error
		}
		if desc == "" {
			desc = res.Status
		}
		return fmt.Errorf("bitrix24 %s: %s", method, desc)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("bitrix24 %s: decode result: %w", method, err)
		}
	}
	return nil
}

// callWithTotal is call plus the envelope-level "total" counter that list
// methods report alongside the result page.
func (c *Client) callWithTotal(ctx context.Context, method string, body any, out any) (int, error) {
	if !c.Configured() {
		return 0, ErrNotConfigured
	}
	b, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	url := c.webhookBase + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("bitrix24 %s: %w", method, err)
	}
	defer func() { _ = res.Body.Close() }()

	var env struct {
		apiEnvelope
		Total int `json:"total"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return 0, fmt.Errorf("bitrix24 %s: decode response: %w", method, err)
	}
	if res.StatusCode >= 400 || env.Error != "" {
		desc := env.ErrorDescription
		if desc == "" {
			desc = env.Error
		}
		if desc == "" {
			desc = res.Status
		}
		return 0, fmt.Errorf("bitrix24 %s: %s", method, desc)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return 0, fmt.Errorf("bitrix24 %s: decode result: %w", method, err)
		}
	}
	return env.Total, nil
}

func stageCacheKey(categoryID int) string {
	return fmt.Sprintf("bitrix:stages:%d", categoryID)
}

// stageNames resolves STATUS_ID -> display name for a deal category. Results
// are cached in Redis for an hour. Failures degrade to an empty map so deal
// listings still render without stage names.
func (c *Client) stageNames(ctx context.Context, categoryID int) map[string]string {
	key := stageCacheKey(categoryID)
	if c.rdb != nil {
		cached := map[string]string{}
		if ok, err := helpers.RedisGetJSON(ctx, c.rdb, key, &cached); err == nil && ok {
			return cached
		}
	}

	entityID := "DEAL_STAGE"
	if categoryID != 0 {
		entityID = fmt.Sprintf("DEAL_STAGE_%d", categoryID)
	}
	var stages []map[string]any
	err := c.call(ctx, "crm.status.list", map[string]any{
		"ENTITY_ID": entityID,
		"order":     map[string]string{"SORT": "ASC"},
	}, &stages)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).WithField("category_id", categoryID).Warn("bitrix stage list failed")
		}
		return map[string]string{}
	}

	names := make(map[string]string, len(stages))
	for _, s := range stages {
		id := asString(s["STATUS_ID"])
		if id == "" {
			continue
		}
		name := asString(s["NAME"])
		if name == "" {
			name = id
		}
		names[id] = name
	}

	if c.rdb != nil {
		_ = helpers.RedisSetJSON(ctx, c.rdb, key, names, time.Hour)
	}
	return names
}
