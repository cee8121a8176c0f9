package remote

import "testing"

func TestChatKey(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		chat Chat
		want string
	}{
		{"username wins", Chat{ID: 1, Username: "alice", Title: "Alice W"}, "@alice"},
		{"username keeps single at", Chat{ID: 1, Username: "@alice"}, "@alice"},
		{"title separators flattened", Chat{ID: 2, Title: "Some Chat/Group"}, "Some_Chat_Group"},
		{"id fallback", Chat{ID: 3}, "3"},
		{"blank title falls through", Chat{ID: 4, Title: "   "}, "4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.chat.Key(); got != tc.want {
				t.Fatalf("Key() = %q, want %q", got, tc.want)
			}
		})
	}
}
