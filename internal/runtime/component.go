package runtime

import (
	"cardsmith/internal/card"
	"cardsmith/internal/logging"
	"cardsmith/internal/scope"
)

// Component is one instantiated card. A component renders many times over
// its life, once per dashboard paint; renders are independent and the
// component keeps no state between them.
type Component struct {
	entry  string
	render renderFunc
}

// Entry returns the artifact's entry function name.
func (c *Component) Entry() string { return c.entry }

// Render runs the card's entry function against a mount context. A panic
// inside interpreted code is caught here and converted to a
// *card.RuntimeError carrying the panic value, so one broken card renders
// as its own error slot while the rest of the dashboard paints normally.
func (c *Component) Render(ctx *scope.Card) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.RuntimeError("card entry %s panicked: %v", c.entry, r)
			out = ""
			err = &card.RuntimeError{Value: r}
		}
	}()
	return c.render(ctx)
}

// RenderFor is Render with the owning card id stamped into any runtime
// error, which is what the dashboard shows in the failed slot.
func (c *Component) RenderFor(cardID string, ctx *scope.Card) (string, error) {
	out, err := c.Render(ctx)
	if err != nil {
		if rerr, ok := err.(*card.RuntimeError); ok && rerr.CardID == "" {
			rerr.CardID = cardID
		}
		logging.AuditRenderFailed(cardID, err)
	}
	return out, err
}
