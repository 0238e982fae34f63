package automation

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf16"

	"bugalou/internal/models"
)

// EventContact is the contact an event is about. Attributes carry free-form
// fields (score, city, ...) and are exposed next to the typed fields.
type EventContact struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Email      string         `json:"email,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ContactFromModel builds an EventContact from a stored contact.
func ContactFromModel(c *models.Contact) EventContact {
	ec := EventContact{ID: c.ID, Phone: c.Phone}
	if c.Name != nil {
		ec.Name = *c.Name
	}
	if c.Email != nil {
		ec.Email = *c.Email
	}
	if len(c.Tags) > 0 {
		_ = json.Unmarshal(c.Tags, &ec.Tags)
	}
	if len(c.Attributes) > 0 {
		_ = json.Unmarshal(c.Attributes, &ec.Attributes)
	}
	return ec
}

// Context is the read-only data that templates and conditions see during one
// run: contact, company, payload and the aliases name, email and phone.
type Context struct {
	root map[string]any
}

func NewContext(contact EventContact, company *models.Company, payload map[string]any) Context {
	c := make(map[string]any, len(contact.Attributes)+5)
	for k, v := range contact.Attributes {
		c[k] = v
	}
	if contact.Tags != nil {
		tags := make([]any, len(contact.Tags))
		for i, t := range contact.Tags {
			tags[i] = t
		}
		c["tags"] = tags
	}
	c["id"] = optional(contact.ID)
	c["name"] = optional(contact.Name)
	c["email"] = optional(contact.Email)
	c["phone"] = optional(contact.Phone)

	if payload == nil {
		payload = map[string]any{}
	}

	return Context{root: map[string]any{
		"contact": c,
		"company": companyFields(company),
		"payload": payload,
		"name":    c["name"],
		"email":   c["email"],
		"phone":   c["phone"],
	}}
}

// NewContextFromMap wraps an already nested mapping, mostly for tests.
func NewContextFromMap(m map[string]any) Context {
	if m == nil {
		m = map[string]any{}
	}
	return Context{root: m}
}

func companyFields(company *models.Company) any {
	if company == nil {
		return nil
	}
	return map[string]any{
		"id":             company.ID,
		"name":           company.Name,
		"slug":           deref(company.Slug),
		"whatsappNumber": deref(company.WhatsAppNumber),
		"primaryColor":   deref(company.PrimaryColor),
		"accentColor":    deref(company.AccentColor),
		"introText":      deref(company.IntroText),
	}
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Lookup resolves a dotted path one segment at a time. Maps are indexed by
// key. Lists and strings are indexed by integer position and have a length;
// string positions and lengths count UTF-16 units, as the dashboard does.
// A missing or nil intermediate reports false; it never panics.
func (c Context) Lookup(path string) (any, bool) {
	var cur any = c.root
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			if part == "length" {
				cur = float64(len(node))
				continue
			}
			i, ok := position(part, len(node))
			if !ok {
				return nil, false
			}
			cur = node[i]
		case []string:
			if part == "length" {
				cur = float64(len(node))
				continue
			}
			i, ok := position(part, len(node))
			if !ok {
				return nil, false
			}
			cur = node[i]
		case string:
			units := utf16.Encode([]rune(node))
			if part == "length" {
				cur = float64(len(units))
				continue
			}
			i, ok := position(part, len(units))
			if !ok {
				return nil, false
			}
			cur = string(utf16.Decode(units[i : i+1]))
		default:
			return nil, false
		}
	}
	return cur, true
}

// position reads a canonical non-negative index below n: "1" is an index,
// "01" and "+1" are not.
func position(part string, n int) (int, bool) {
	i, err := strconv.Atoi(part)
	if err != nil || i < 0 || i >= n || strconv.Itoa(i) != part {
		return 0, false
	}
	return i, true
}

// Snapshot returns the underlying mapping for audit payloads.
func (c Context) Snapshot() map[string]any {
	return c.root
}
