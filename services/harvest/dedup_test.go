package harvest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerAdmit(t *testing.T) {
	led := newLedger()

	require.True(t, led.admit("t3_a"))
	require.False(t, led.admit("t3_a"))
	require.True(t, led.admit("t3_b"))

	// keyless records are never admitted
	require.False(t, led.admit(""))
	require.False(t, led.admit(""))

	// a new ledger has no memory of the previous one
	led = newLedger()
	require.True(t, led.admit("t3_a"))
}

func TestDedupKey(t *testing.T) {
	testCases := []struct {
		id        string
		permalink string
		title     string
		author    string
		expected  string
	}{
		{id: "t3_a", permalink: "/r/x/1", title: "t", author: "a", expected: "t3_a"},
		{id: "", permalink: "/r/x/1", title: "t", author: "a", expected: "/r/x/1"},
		{id: "", permalink: "", title: "t", author: "a", expected: "t\x00a"},
		{id: "", permalink: "", title: "t", author: "", expected: "t\x00"},
		{id: "", permalink: "", title: "", author: "", expected: ""},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, dedupKey(test.id, test.permalink, test.title, test.author))
	}

	author := "a"
	link := "/r/x/1"
	require.Equal(t, "/r/x/1", postKey("", &link, "t", &author))
	require.Equal(t, "t\x00a", postKey("", nil, "t", &author))
	require.Equal(t, "", postKey("", nil, "", nil))
}
