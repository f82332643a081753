package main

import (
	"fmt"
	"sync"

	"github.com/helixdata/mdkit/record"
)

// sampleStore is the demo's stand-in for an upstream master data service.
// Every mutation bumps the table's version token, so the manager's
// revalidation can be watched from outside.
type sampleStore struct {
	mu       sync.Mutex
	tables   map[string][]record.Record
	versions map[string]int
}

func newSampleStore() *sampleStore {
	return &sampleStore{
		tables: map[string][]record.Record{
			"countries": {
				{"id": 1, "code": "US", "name": "United States", "region": "NA", "population": 331900000},
				{"id": 2, "code": "CA", "name": "Canada", "region": "NA", "population": 38250000},
				{"id": 3, "code": "FR", "name": "France", "region": "EU", "population": 67750000},
				{"id": 4, "code": "DE", "name": "Germany", "region": "EU", "population": 83200000},
				{"id": 5, "code": "JP", "name": "Japan", "region": "APAC", "population": 125700000},
			},
			"products": {
				{"sku": "KB-100", "name": "Keyboard", "category": "peripherals", "price": 49.90, "stock": 120},
				{"sku": "MS-210", "name": "Mouse", "category": "peripherals", "price": 24.50, "stock": 340},
				{"sku": "MN-270", "name": "Monitor 27\"", "category": "displays", "price": 289.00, "stock": 55},
				{"sku": "DS-450", "name": "Docking Station", "category": "accessories", "price": 179.99, "stock": 33},
			},
		},
		versions: map[string]int{
			"countries": 1,
			"products":  1,
		},
	}
}

// snapshot returns a copy of the table's records and its version token.
func (s *sampleStore) snapshot(table string) ([]record.Record, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.tables[table]
	if !ok {
		return nil, "", false
	}
	out := make([]record.Record, len(records))
	copy(out, records)
	return out, s.versionLocked(table), true
}

// rotate moves the first record to the end and bumps the version, giving
// an observable data change for resync demos.
func (s *sampleStore) rotate(table string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.tables[table]
	if !ok {
		return "", false
	}
	if len(records) > 1 {
		s.tables[table] = append(records[1:], records[0])
	}
	s.versions[table]++
	return s.versionLocked(table), true
}

func (s *sampleStore) versionLocked(table string) string {
	return fmt.Sprintf("v%d", s.versions[table])
}
