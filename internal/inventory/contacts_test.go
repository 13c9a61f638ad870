package inventory

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type contacts struct {
	Other      string            `yaml:"other,omitempty"`
	HostEmails map[string]string `yaml:"host_emails"`
}

func decodeContacts(t *testing.T, data []byte) contacts {
	t.Helper()
	var c contacts
	require.NoError(t, yaml.Unmarshal(data, &c))
	return c
}

func TestAddContact(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    contacts
		changed bool
	}{
		{
			name:    "empty file",
			in:      "",
			want:    contacts{HostEmails: map[string]string{"box1.aopstest.com": "dev@example.com"}},
			changed: true,
		},
		{
			name:    "no host_emails key",
			in:      "other: value\n",
			want:    contacts{Other: "value", HostEmails: map[string]string{"box1.aopstest.com": "dev@example.com"}},
			changed: true,
		},
		{
			name:    "null host_emails",
			in:      "host_emails:\n",
			want:    contacts{HostEmails: map[string]string{"box1.aopstest.com": "dev@example.com"}},
			changed: true,
		},
		{
			name: "appends to existing",
			in:   "host_emails:\n  web1.aopstest.com: ops@example.com\n",
			want: contacts{HostEmails: map[string]string{
				"web1.aopstest.com": "ops@example.com",
				"box1.aopstest.com": "dev@example.com",
			}},
			changed: true,
		},
		{
			name: "existing entry kept",
			in:   "host_emails:\n  box1.aopstest.com: owner@example.com\n",
			want: contacts{HostEmails: map[string]string{"box1.aopstest.com": "owner@example.com"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed, err := addContact([]byte(tt.in), "box1.aopstest.com", "dev@example.com")
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			if !changed {
				assert.Equal(t, tt.in, string(out))
			}
			if diff := cmp.Diff(tt.want, decodeContacts(t, out)); diff != "" {
				t.Errorf("unexpected contacts (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAddContactPreservesCommentsAndOrder(t *testing.T) {
	in := "# owners of test hosts\nhost_emails:\n  web1.aopstest.com: ops@example.com # primary\n"
	out, changed, err := addContact([]byte(in), "box1.aopstest.com", "dev@example.com")
	require.NoError(t, err)
	require.True(t, changed)

	s := string(out)
	assert.Contains(t, s, "# owners of test hosts")
	assert.Contains(t, s, "# primary")
	assert.Less(t, strings.Index(s, "web1.aopstest.com"), strings.Index(s, "box1.aopstest.com"))
}

func TestAddContactRejectsNonMapping(t *testing.T) {
	_, _, err := addContact([]byte("host_emails: [a, b]\n"), "box1.aopstest.com", "dev@example.com")
	require.Error(t, err)

	_, _, err = addContact([]byte("- a\n- b\n"), "box1.aopstest.com", "dev@example.com")
	require.Error(t, err)
}

func TestRemoveContact(t *testing.T) {
	in := "host_emails:\n  web1.aopstest.com: ops@example.com\n  box1.aopstest.com: dev@example.com\n"
	out, changed, err := removeContact([]byte(in), "box1.aopstest.com")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, contacts{HostEmails: map[string]string{"web1.aopstest.com": "ops@example.com"}}, decodeContacts(t, out))

	out, changed, err = removeContact(out, "box1.aopstest.com")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NotContains(t, string(out), "box1")

	_, changed, err = removeContact([]byte("other: value\n"), "box1.aopstest.com")
	require.NoError(t, err)
	assert.False(t, changed)
}
