package extension

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageEnvelopeRoundTrip(t *testing.T) {
	raw := `{"action":"storeFormSession","data":{"tabId":7,"pageUrl":"https://example.gov/contact"}}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, ActionStoreFormSession, msg.Action)

	var s FormSession
	require.NoError(t, json.Unmarshal(msg.Data, &s))
	assert.Equal(t, 7, s.TabID)
	assert.Equal(t, "https://example.gov/contact", s.PageURL)
}

func TestRegistryStoreReplacesPerTab(t *testing.T) {
	r := NewSessionRegistry()

	r.Store(FormSession{TabID: 1, PageURL: "https://a.gov", Status: FormPending})
	r.Store(FormSession{TabID: 1, PageURL: "https://b.gov", Status: FormFilling})

	s, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, "https://b.gov", s.PageURL)
	assert.Equal(t, FormFilling, s.Status)
	assert.False(t, s.UpdatedAt.IsZero())
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewSessionRegistry()
	r.Store(FormSession{TabID: 1, Status: FormPending})

	s, ok := r.Get(1)
	require.True(t, ok)
	s.Status = FormFailed

	again, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, FormPending, again.Status)
}

func TestRegistrySetStatus(t *testing.T) {
	r := NewSessionRegistry()
	r.Store(FormSession{TabID: 1, Status: FormPending})

	r.SetStatus(1, FormSubmitted)
	s, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, FormSubmitted, s.Status)

	// Unknown tab is a no-op.
	r.SetStatus(99, FormFailed)
	_, ok = r.Get(99)
	assert.False(t, ok)
}

func TestRegistryActiveAndDrop(t *testing.T) {
	r := NewSessionRegistry()
	r.Store(FormSession{TabID: 1, Status: FormPending})
	r.Store(FormSession{TabID: 2, Status: FormFilling})
	r.Store(FormSession{TabID: 3, Status: FormSubmitted})
	r.Store(FormSession{TabID: 4, Status: FormFailed})

	assert.Len(t, r.Active(), 2)

	r.DropTab(2)
	assert.Len(t, r.Active(), 1)

	_, ok := r.Get(2)
	assert.False(t, ok)
}
