package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContact() Contact {
	return Contact{
		ID:        "c1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Title:     "Analyst",
		Phone:     "555-0100",
		Email:     "ada@example.com",
	}
}

func TestNewContactIsCreatedAndLocal(t *testing.T) {
	c := NewContact()

	assert.NotEmpty(t, c.ID)
	assert.True(t, c.Is(FlagCreated))
	assert.False(t, c.Is(FlagModified))
	assert.True(t, c.Local())
}

func TestSetChangesOnlyTheNamedField(t *testing.T) {
	values := []string{"", "x", "  padded  ", "Bad phone", "ünïcode"}

	for _, f := range EditableFields {
		for _, v := range values {
			before := sampleContact()
			after := before
			require.NoError(t, after.Set(f.Key, v))

			got, err := after.Get(f.Key)
			require.NoError(t, err)
			assert.Equal(t, v, got)

			restored := after
			orig, _ := before.Get(f.Key)
			require.NoError(t, restored.Set(f.Key, orig))
			if diff := cmp.Diff(before, restored); diff != "" {
				t.Fatalf("Set(%q) touched other fields (-want +got):\n%s", f.Key, diff)
			}
			assert.Equal(t, before.Flags, after.Flags, "Set must not mark the record dirty")
		}
	}
}

func TestSetUnknownField(t *testing.T) {
	c := sampleContact()
	err := c.Set("Nickname", "x")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = c.Get("Nickname")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestMarkSaved(t *testing.T) {
	for _, flags := range []SyncFlags{0, FlagCreated, FlagDeleted, FlagModified | FlagUpdated} {
		c := sampleContact()
		c.Flags = flags
		c.LastError = `[{"message":"Bad phone"}]`

		c.MarkSaved()

		assert.Empty(t, c.LastError)
		assert.True(t, c.Is(FlagUpdated))
		assert.True(t, c.Local())
	}
}

func TestToggleDeletedTwiceRestores(t *testing.T) {
	for _, flags := range []SyncFlags{0, FlagCreated, FlagDeleted, FlagUpdated | FlagDeleted} {
		c := sampleContact()
		c.Flags = flags

		c.ToggleDeleted()
		assert.NotEqual(t, flags.Has(FlagDeleted), c.Is(FlagDeleted))
		assert.Equal(t, c.Flags != 0, c.Local())

		c.ToggleDeleted()
		assert.Equal(t, flags, c.Flags)
		assert.Equal(t, flags != 0, c.Local())
	}
}

func TestLocalFollowsFlags(t *testing.T) {
	c := sampleContact()
	assert.False(t, c.Local())

	for _, f := range []SyncFlags{FlagCreated, FlagModified, FlagUpdated, FlagDeleted} {
		c.Flags = f
		assert.True(t, c.Local(), f.String())
	}

	c.ClearSyncState()
	assert.False(t, c.Local())
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "clean", SyncFlags(0).String())
	assert.Equal(t, "created|deleted", (FlagCreated | FlagDeleted).String())
}

func TestJSONUsesSoupFieldNames(t *testing.T) {
	c := sampleContact()
	c.Flags = FlagCreated | FlagUpdated
	c.LastError = "oops"

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, true, raw["__locally_created__"])
	assert.Equal(t, true, raw["__locally_updated__"])
	assert.Equal(t, false, raw["__locally_deleted__"])
	assert.Equal(t, true, raw["__local__"])
	assert.Equal(t, "oops", raw["__last_error__"])
}

func TestUnmarshalIgnoresStoredLocal(t *testing.T) {
	payload := `{"local_id":"c9","FirstName":"Bob","__locally_deleted__":true,"__local__":false}`

	var c Contact
	require.NoError(t, json.Unmarshal([]byte(payload), &c))

	assert.Equal(t, "c9", c.ID)
	assert.True(t, c.Is(FlagDeleted))
	assert.True(t, c.Local())
}

func TestSameFieldsAndDisplayName(t *testing.T) {
	a := sampleContact()
	b := a
	b.Flags = FlagUpdated
	assert.True(t, a.SameFields(b))

	b.Phone = "555-0199"
	assert.False(t, a.SameFields(b))

	assert.Equal(t, "Ada Lovelace", a.DisplayName())
	assert.Equal(t, "(unnamed)", Contact{}.DisplayName())
}
