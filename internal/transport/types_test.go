package transport

import "testing"

func TestParseChatTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    ChatTarget
		wantErr bool
	}{
		{name: "numeric id", in: "123456789", want: ChatTarget{ID: 123456789}},
		{name: "negative group id", in: "-1001234567890", want: ChatTarget{ID: -1001234567890}},
		{name: "username", in: "@prensa_alerts", want: ChatTarget{Username: "prensa_alerts"}},
		{name: "surrounding spaces", in: "  42  ", want: ChatTarget{ID: 42}},
		{name: "empty", in: "", wantErr: true},
		{name: "bare at sign", in: "@", wantErr: true},
		{name: "garbage", in: "not-a-chat", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseChatTarget(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestChatTargetString(t *testing.T) {
	t.Parallel()

	if got := (ChatTarget{ID: -100}).String(); got != "-100" {
		t.Fatalf("expected -100, got %q", got)
	}
	if got := (ChatTarget{Username: "x"}).String(); got != "@x" {
		t.Fatalf("expected @x, got %q", got)
	}
	if got := (ChatTarget{}).String(); got != "<none>" {
		t.Fatalf("expected <none>, got %q", got)
	}
}
