package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir invalid: %v", err)
	}
}

func TestInitSchemaCoversCoreTables(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	var combined strings.Builder
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := os.ReadFile(filepath.Join("migrations", e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		combined.Write(b)
	}

	sql := combined.String()
	for _, table := range []string{
		"access_codes",
		"access_code_usages",
		"access_grants",
		"wallet_transactions",
		"courses",
		"lessons",
		"videos",
		"users",
	} {
		if !strings.Contains(sql, "CREATE TABLE "+table) {
			t.Fatalf("migrations missing table %s", table)
		}
	}

	if !strings.Contains(sql, "uq_access_grants_user_course_source") {
		t.Fatal("access_grants must carry the user/course/source uniqueness constraint")
	}
	if !strings.Contains(sql, "uq_access_codes_code") {
		t.Fatal("access_codes must carry the unique code index")
	}
}
