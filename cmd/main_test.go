package main

import (
	"context"
	"testing"

	cli "github.com/urfave/cli/v3"

	"manga_reader/ui"
)

func startFrom(t *testing.T, args ...string) (*ui.StartAt, error) {
	t.Helper()
	var (
		start *ui.StartAt
		perr  error
	)
	cmd := &cli.Command{
		Name: appName,
		Action: func(_ context.Context, cmd *cli.Command) error {
			start, perr = parseStart(cmd)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{appName}, args...)); err != nil {
		t.Fatal(err)
	}
	return start, perr
}

func TestParseStart(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    *ui.StartAt
		wantErr bool
	}{
		{"none", nil, nil, false},
		{"manga", []string{"local", "2"}, &ui.StartAt{Source: "local", MangaID: 2}, false},
		{"chapter", []string{"server", "7", "12"}, &ui.StartAt{Source: "server", MangaID: 7, ChapterID: 12}, false},
		{"source only", []string{"web"}, nil, true},
		{"bad manga", []string{"web", "x"}, nil, true},
		{"bad chapter", []string{"web", "1", "x"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := startFrom(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want == nil {
				if got != nil {
					t.Errorf("got %+v, want nil", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
