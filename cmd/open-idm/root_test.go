package main

import "testing"

func TestRootCommand_RegistersAdminCommands(t *testing.T) {
	t.Parallel()

	if cmd, _, err := rootCmd.Find([]string{"systems", "set-state"}); err != nil || cmd == nil || cmd.Name() != "set-state" {
		t.Fatalf("systems set-state command not registered: cmd=%v err=%v", cmd, err)
	}
	if cmd, _, err := rootCmd.Find([]string{"users", "bootstrap-admin"}); err != nil || cmd == nil || cmd.Name() != "bootstrap-admin" {
		t.Fatalf("users bootstrap-admin command not registered: cmd=%v err=%v", cmd, err)
	}
}

func TestCommandUsesStructuredLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "serve", args: []string{"serve"}, want: true},
		{name: "migrate", args: []string{"migrate"}, want: true},
		{name: "users bootstrap-admin", args: []string{"users", "bootstrap-admin"}, want: false},
		{name: "connectors", args: []string{"connectors"}, want: false},
		{name: "systems list", args: []string{"systems", "list"}, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd, _, err := rootCmd.Find(tc.args)
			if err != nil {
				t.Fatalf("Find(%v) error = %v", tc.args, err)
			}
			if cmd == nil {
				t.Fatalf("Find(%v) returned nil command", tc.args)
			}

			if got := commandUsesStructuredLogging(cmd); got != tc.want {
				t.Fatalf("commandUsesStructuredLogging(%q) = %v, want %v", cmd.CommandPath(), got, tc.want)
			}
		})
	}
}
