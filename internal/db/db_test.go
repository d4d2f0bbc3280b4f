package db

import (
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		opts ConnOpts
		want string
	}{
		{
			name: "default local",
			opts: ConnOpts{Host: "127.0.0.1", Port: 3306, User: "root", Database: "deskline_support"},
			want: "root@tcp(127.0.0.1:3306)/deskline_support?parseTime=true",
		},
		{
			name: "with password",
			opts: ConnOpts{Host: "10.0.0.5", Port: 3307, User: "deskline", Password: "hunter2", Database: "deskline_support"},
			want: "deskline:hunter2@tcp(10.0.0.5:3307)/deskline_support?parseTime=true",
		},
		{
			name: "no database selected",
			opts: ConnOpts{Host: "127.0.0.1", Port: 3306, User: "root"},
			want: "root@tcp(127.0.0.1:3306)/?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.opts)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDSN_ParseTimeFlag(t *testing.T) {
	dsn := DSN(ConnOpts{Host: "localhost", Port: 3306, User: "root", Database: "test"})
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN missing parseTime=true: %s", dsn)
	}
}

func TestAllModels_Count(t *testing.T) {
	models := AllModels()
	if len(models) != 3 {
		t.Errorf("AllModels() returned %d models, want 3", len(models))
	}
}

func TestConnect_Error(t *testing.T) {
	// Port 1 is unlikely to have a MySQL server; expect connection error.
	_, err := Connect(ConnOpts{Host: "127.0.0.1", Port: 1, User: "root", Database: "nonexistent"})
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: connect to")
	}
}

func TestConnectAdmin_Error(t *testing.T) {
	_, err := ConnectAdmin(ConnOpts{Host: "127.0.0.1", Port: 1, User: "root"})
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: admin connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: admin connect to")
	}
}
