package sim

import "testing"

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Command
	}{
		{"json object", `{"cmd":"status"}`, CmdStatus},
		{"json object pause", `{"cmd":"pause"}`, CmdPause},
		{"json bare string", `"resume"`, CmdResume},
		{"raw text", "stats", CmdStats},
		{"raw text with whitespace", "  links\n", CmdLinks},
		{"unknown name", `{"cmd":"reboot"}`, CmdUnknown},
		{"garbage", "{not json", CmdUnknown},
		{"empty", "", CmdUnknown},
		{"json without cmd field", `{"other":1}`, CmdUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseCommand([]byte(tc.raw)); got != tc.want {
				t.Fatalf("ParseCommand(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	pairs := map[Command]string{
		CmdStatus:  "status",
		CmdPause:   "pause",
		CmdResume:  "resume",
		CmdStats:   "stats",
		CmdLinks:   "links",
		CmdUnknown: "unknown",
	}
	for cmd, want := range pairs {
		if got := cmd.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", cmd, got, want)
		}
	}
}
