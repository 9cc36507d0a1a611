//go:build !sqlite

package storage

import "fmt"

func newSQLiteStore(_ string) (Store, error) {
	return nil, fmt.Errorf("sqlite backend unavailable in this build; build htmnetctl with -tags sqlite")
}
