package browser

import (
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage stubs the handful of Page methods the command layer touches.
// Unimplemented methods panic through the embedded nil interface, which is
// exactly what we want: a command reaching beyond its contract fails loudly.
type fakePage struct {
	playwright.Page

	closed bool
	waited []float64
}

func (p *fakePage) IsClosed() bool { return p.closed }

func (p *fakePage) WaitForTimeout(timeout float64) {
	p.waited = append(p.waited, timeout)
}

// missingElementPage reports every selector wait as failed, the way a real
// page does when the element never appears inside the wait budget.
type missingElementPage struct {
	fakePage

	selectorWaits []float64
}

func (p *missingElementPage) WaitForSelector(selector string, options ...playwright.PageWaitForSelectorOptions) (playwright.ElementHandle, error) {
	if len(options) > 0 && options[0].Timeout != nil {
		p.selectorWaits = append(p.selectorWaits, *options[0].Timeout)
	}
	return nil, fmt.Errorf("timeout exceeded while waiting for %s", selector)
}

func TestGoto_BlockedBeforeAnySessionMutation(t *testing.T) {
	allow := ParseAllowlist("example.com")

	// A nil session proves the allowlist check runs before the page is
	// touched: any session access would panic.
	_, err := Goto(nil, "https://evil.com/login", allow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDomainBlocked)
}

func TestWait_DefaultsAndStamp(t *testing.T) {
	page := &fakePage{}
	s := &Session{Name: "chatgpt", Page: page}

	before := time.Now()
	res, err := Wait(s, 0)
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, DefaultWaitMs, res.Data["ms"])
	assert.Equal(t, []float64{float64(DefaultWaitMs)}, page.waited)
	assert.False(t, s.LastUsedAt.Before(before))
}

func TestClick_MissingSelectorIsElementTimeout(t *testing.T) {
	page := &missingElementPage{}
	s := &Session{Name: "chatgpt", Page: page}

	_, err := Click(s, "#missing", 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementTimeout)
	// The caller's short budget reaches the page wait unchanged.
	assert.Equal(t, []float64{20}, page.selectorWaits)
}

func TestClick_ZeroTimeoutUsesDefault(t *testing.T) {
	page := &missingElementPage{}
	s := &Session{Name: "chatgpt", Page: page}

	_, err := Click(s, "#missing", 0)
	assert.ErrorIs(t, err, ErrElementTimeout)
	assert.Equal(t, []float64{DefaultClickTimeoutMs}, page.selectorWaits)
}

func TestType_MissingSelectorIsElementTimeout(t *testing.T) {
	page := &missingElementPage{}
	s := &Session{Name: "chatgpt", Page: page}

	_, err := Type(s, "#missing", "hello", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementTimeout)
	assert.Equal(t, []float64{DefaultClickTimeoutMs}, page.selectorWaits)
}

func TestSession_Alive(t *testing.T) {
	assert.False(t, (*Session)(nil).Alive())
	assert.False(t, (&Session{}).Alive())
	assert.True(t, (&Session{Page: &fakePage{}}).Alive())
	assert.False(t, (&Session{Page: &fakePage{closed: true}}).Alive())
}

func TestDispatch_UnknownCommand(t *testing.T) {
	res := Dispatch(nil, "teleport", nil, nil)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "Unknown command")
}

func TestDispatch_BlockedGotoFoldsIntoResult(t *testing.T) {
	res := Dispatch(nil, "GoTo", map[string]any{"url": "https://evil.com"}, ParseAllowlist("example.com"))
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "allowlist")
}

func TestDispatch_WaitArgsFromJSONNumbers(t *testing.T) {
	page := &fakePage{}
	s := &Session{Name: "chatgpt", Page: page}

	// JSON decoding hands numbers over as float64.
	res := Dispatch(s, "wait", map[string]any{"ms": float64(50)}, nil)
	assert.True(t, res.OK)
	assert.Equal(t, []float64{50}, page.waited)
}

func TestSchemas(t *testing.T) {
	schemas := Schemas()
	require.Len(t, schemas, 5)

	names := make([]string, 0, len(schemas))
	for _, s := range schemas {
		names = append(names, s.Name)
		assert.NotEmpty(t, s.Desc)
	}
	assert.Equal(t, []string{"goto", "click", "type", "scroll", "wait"}, names)
}
