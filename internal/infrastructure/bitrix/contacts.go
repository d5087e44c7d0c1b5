package bitrix

import "context"

// ContactInput carries the fields a contact is created from.
type ContactInput struct {
	Name    string
	Surname string
	Email   string
	Phone   string
}

type multifield struct {
	Value     string `json:"VALUE"`
	ValueType string `json:"VALUE_TYPE"`
}

// CreateContact creates a CRM contact and returns its new ID. Email and
// phone go through Bitrix multifields with the WORK value type.
func (c *Client) CreateContact(ctx context.Context, in ContactInput) (string, error) {
	fields := map[string]any{
		"NAME":      in.Name,
		"LAST_NAME": in.Surname,
		"OPENED":    "Y",
	}
	if in.Email != "" {
		fields["EMAIL"] = []multifield{{Value: in.Email, ValueType: "WORK"}}
	}
	if in.Phone != "" {
		fields["PHONE"] = []multifield{{Value: in.Phone, ValueType: "WORK"}}
	}

	var id any
	if err := c.call(ctx, "crm.contact.add", map[string]any{"fields": fields}, &id); err != nil {
		return "", err
	}
	return asString(id), nil
}
