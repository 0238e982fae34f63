package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	ctx := NewContextFromMap(map[string]any{
		"name": "Ann",
		"a":    map[string]any{},
		"contact": map[string]any{
			"score": float64(20),
			"vip":   true,
			"tags":  []any{"VIP", "lead"},
			"meta":  map[string]any{"x": 1},
			"email": nil,
		},
		"payload": map[string]any{"items": []any{"shoe", "sock"}},
	})

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{name: "alias", tmpl: "Hi {{name}}", want: "Hi Ann"},
		{name: "whitespace inside braces", tmpl: "Hi {{  name }}!", want: "Hi Ann!"},
		{name: "missing leaf", tmpl: "{{a.b}}", want: ""},
		{name: "missing root", tmpl: "x{{nope.deeper}}y", want: "xy"},
		{name: "nil value", tmpl: "[{{contact.email}}]", want: "[]"},
		{name: "number", tmpl: "score {{contact.score}}", want: "score 20"},
		{name: "bool", tmpl: "{{contact.vip}}", want: "true"},
		{name: "list", tmpl: "{{contact.tags}}", want: "VIP,lead"},
		{name: "object", tmpl: "{{contact.meta}}", want: "[object Object]"},
		{name: "list index", tmpl: "{{payload.items.1}}", want: "sock"},
		{name: "plain text", tmpl: "plain text", want: "plain text"},
		{name: "no-break space inside braces", tmpl: "Hi {{\u00a0name\u00a0}}", want: "Hi Ann"},
		{name: "string index", tmpl: "{{name.0}}.", want: "A."},
		{name: "list length", tmpl: "{{contact.tags.length}} tags", want: "2 tags"},
		{name: "not a placeholder", tmpl: "{{ two words }}", want: "{{ two words }}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderTemplate(tt.tmpl, ctx))
		})
	}
}

func TestRenderTemplate_EmptyContext(t *testing.T) {
	assert.Equal(t, "plain text", RenderTemplate("plain text", NewContextFromMap(nil)))
	assert.Equal(t, "Hi ", RenderTemplate("Hi {{name}}", NewContextFromMap(nil)))
}
