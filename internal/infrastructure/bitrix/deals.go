package bitrix

import (
	"context"
	"fmt"
	"strconv"
)

const dealPageSize = 50

var dealSelect = []string{"ID", "TITLE", "OPPORTUNITY", "CURRENCY_ID", "STAGE_ID", "CATEGORY_ID", "DATE_CREATE", "CONTACT_ID"}

// Deal is the projection of a Bitrix24 deal the API exposes.
type Deal struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Amount     string `json:"amount"`
	CurrencyID string `json:"currency_id"`
	StageID    string `json:"stage_id"`
	StageName  string `json:"stage_name"`
	CategoryID int    `json:"category_id"`
	ContactID  string `json:"contact_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// DealPage is one page of a deal listing.
type DealPage struct {
	Deals []Deal `json:"deals"`
	Page  int    `json:"page"`
	Total int    `json:"total"`
}

// DealInput carries the writable deal fields. Empty fields are left out of
// the request, so the same type serves both create and partial update.
type DealInput struct {
	Title      string
	Amount     string
	CurrencyID string
	StageID    string
	CategoryID int
	ContactID  string
}

// ListDeals returns one 50-item page of deals, newest first, with stage names
// resolved per category.
func (c *Client) ListDeals(ctx context.Context, page int) (*DealPage, error) {
	if page < 1 {
		page = 1
	}
	var rows []map[string]any
	body := map[string]any{
		"order":  map[string]string{"DATE_CREATE": "DESC"},
		"select": dealSelect,
		"start":  (page - 1) * dealPageSize,
	}
	total, err := c.callWithTotal(ctx, "crm.deal.list", body, &rows)
	if err != nil {
		return nil, err
	}

	stagesByCategory := map[int]map[string]string{}
	deals := make([]Deal, 0, len(rows))
	for _, row := range rows {
		d := dealFromRow(row)
		names, ok := stagesByCategory[d.CategoryID]
		if !ok {
			names = c.stageNames(ctx, d.CategoryID)
			stagesByCategory[d.CategoryID] = names
		}
		if name, ok := names[d.StageID]; ok {
			d.StageName = name
		} else {
			d.StageName = d.StageID
		}
		deals = append(deals, d)
	}
	return &DealPage{Deals: deals, Page: page, Total: total}, nil
}

// GetDeal fetches a single deal by its Bitrix ID.
func (c *Client) GetDeal(ctx context.Context, id string) (*Deal, error) {
	var row map[string]any
	if err := c.call(ctx, "crm.deal.get", map[string]any{"id": id}, &row); err != nil {
		return nil, err
	}
	d := dealFromRow(row)
	names := c.stageNames(ctx, d.CategoryID)
	if name, ok := names[d.StageID]; ok {
		d.StageName = name
	} else {
		d.StageName = d.StageID
	}
	return &d, nil
}

// CreateDeal creates a deal and returns its new ID. Missing stage, currency
// and category fall back to NEW / RUB / 0.
func (c *Client) CreateDeal(ctx context.Context, in DealInput) (string, error) {
	fields := map[string]any{
		"TITLE":       in.Title,
		"STAGE_ID":    "NEW",
		"CURRENCY_ID": "RUB",
		"CATEGORY_ID": in.CategoryID,
	}
	if in.StageID != "" {
		fields["STAGE_ID"] = in.StageID
	}
	if in.CurrencyID != "" {
		fields["CURRENCY_ID"] = in.CurrencyID
	}
	if in.Amount != "" {
		fields["OPPORTUNITY"] = in.Amount
	}
	if in.ContactID != "" {
		fields["CONTACT_ID"] = in.ContactID
	}

	var id any
	if err := c.call(ctx, "crm.deal.add", map[string]any{"fields": fields}, &id); err != nil {
		return "", err
	}
	return asString(id), nil
}

// UpdateDeal patches the given fields on an existing deal.
func (c *Client) UpdateDeal(ctx context.Context, id string, in DealInput) error {
	fields := map[string]any{}
	if in.Title != "" {
		fields["TITLE"] = in.Title
	}
	if in.Amount != "" {
		fields["OPPORTUNITY"] = in.Amount
	}
	if in.CurrencyID != "" {
		fields["CURRENCY_ID"] = in.CurrencyID
	}
	if in.StageID != "" {
		fields["STAGE_ID"] = in.StageID
	}
	if in.ContactID != "" {
		fields["CONTACT_ID"] = in.ContactID
	}
	if len(fields) == 0 {
		return nil
	}

	var ok bool
	return c.call(ctx, "crm.deal.update", map[string]any{"id": id, "fields": fields}, &ok)
}

// DeleteDeal removes a deal.
func (c *Client) DeleteDeal(ctx context.Context, id string) error {
	var ok bool
	return c.call(ctx, "crm.deal.delete", map[string]any{"id": id}, &ok)
}

func dealFromRow(row map[string]any) Deal {
	return Deal{
		ID:         asString(row["ID"]),
		Title:      asString(row["TITLE"]),
		Amount:     asString(row["OPPORTUNITY"]),
		CurrencyID: asString(row["CURRENCY_ID"]),
		StageID:    asString(row["STAGE_ID"]),
		CategoryID: asInt(row["CATEGORY_ID"]),
		ContactID:  asString(row["CONTACT_ID"]),
		CreatedAt:  asString(row["DATE_CREATE"]),
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}
