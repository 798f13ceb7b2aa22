// Package dataset loads trip requests from tabular trip-record files,
// applies the load-time filters, and checkpoints filtered request sets
// between runs.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"ridepool/internal/darp"
	"ridepool/internal/model"
)

// Column layout of the supported trip-record CSVs (NYC TLC yellow-cab
// exports with coordinates, pre-2016).
const (
	colPickupDatetime = 1
	colPickupLon      = 5
	colPickupLat      = 6
	colDropoffLon     = 9
	colDropoffLat     = 10
)

// maxDirectTrip rejects trips whose direct duration exceeds 12 hours; those
// rows are coordinate noise, not rides.
const maxDirectTrip = 12 * 3600.0

// Options steer reading and filtering.
type Options struct {
	// MaxRows caps how many data rows are read; 0 reads everything.
	MaxRows int
	// TimeframeSec keeps only requests whose pickup falls within this many
	// seconds of the earliest request; 0 keeps all.
	TimeframeSec float64
	// SpeedKph is the constant speed used to derive direct trip durations.
	SpeedKph float64
}

// Read parses a trip-record CSV into filtered, pickup-time-sorted records.
// It returns the kept records and the number of rows the filters dropped.
func Read(r io.Reader, opts Options) ([]model.TripRecord, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if _, err := cr.Read(); err != nil { // header
		if err == io.EOF {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	var records []model.TripRecord
	dropped := 0
	row := 0
	for {
		if opts.MaxRows > 0 && row >= opts.MaxRows {
			break
		}
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++
		rec, ok := parseRow(fields, opts.SpeedKph)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RequestedAt < records[j].RequestedAt })
	for i := range records {
		records[i].ID = i + 1
	}
	if opts.TimeframeSec > 0 && len(records) > 0 {
		t0 := records[0].RequestedAt
		cut := len(records)
		for i, rec := range records {
			if rec.RequestedAt >= t0+opts.TimeframeSec {
				cut = i
				break
			}
		}
		records = records[:cut]
	}
	return records, dropped, nil
}

// ReadFile is Read over a file path.
func ReadFile(path string, opts Options) ([]model.TripRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return Read(f, opts)
}

func parseRow(fields []string, speedKph float64) (model.TripRecord, bool) {
	if len(fields) <= colDropoffLat {
		return model.TripRecord{}, false
	}
	at, err := parseClock(fields[colPickupDatetime])
	if err != nil {
		return model.TripRecord{}, false
	}
	puLon, err1 := strconv.ParseFloat(strings.TrimSpace(fields[colPickupLon]), 64)
	puLat, err2 := strconv.ParseFloat(strings.TrimSpace(fields[colPickupLat]), 64)
	doLon, err3 := strconv.ParseFloat(strings.TrimSpace(fields[colDropoffLon]), 64)
	doLat, err4 := strconv.ParseFloat(strings.TrimSpace(fields[colDropoffLat]), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return model.TripRecord{}, false
	}
	rec := model.TripRecord{
		RequestedAt: at,
		PickupLon:   puLon, PickupLat: puLat,
		DropoffLon: doLon, DropoffLat: doLat,
	}
	if !Keep(rec, speedKph) {
		return model.TripRecord{}, false
	}
	return rec, true
}

// Keep applies the load-time filters to one record: coordinates present,
// pickup distinct from dropoff, direct trip under 12 hours.
func Keep(rec model.TripRecord, speedKph float64) bool {
	if rec.PickupLon == 0 || rec.PickupLat == 0 || rec.DropoffLon == 0 || rec.DropoffLat == 0 {
		return false
	}
	if rec.PickupLon == rec.DropoffLon && rec.PickupLat == rec.DropoffLat {
		return false
	}
	pu := darp.Coord{Lon: rec.PickupLon, Lat: rec.PickupLat}
	do := darp.Coord{Lon: rec.DropoffLon, Lat: rec.DropoffLat}
	return darp.TravelTime(pu, do, speedKph) <= maxDirectTrip
}

// Filter applies Keep to a batch, renumbering and sorting the survivors.
// The API ingest path uses it on records arriving as JSON.
func Filter(records []model.TripRecord, speedKph float64) (kept []model.TripRecord, dropped int) {
	for _, rec := range records {
		if Keep(rec, speedKph) {
			kept = append(kept, rec)
		} else {
			dropped++
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].RequestedAt < kept[j].RequestedAt })
	for i := range kept {
		kept[i].ID = i + 1
	}
	return kept, dropped
}

// parseClock extracts seconds since midnight from a "YYYY-MM-DD HH:MM:SS"
// timestamp.
func parseClock(s string) (float64, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed datetime %q", s)
	}
	hms := strings.Split(parts[1], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("malformed time %q", parts[1])
	}
	h, err1 := strconv.Atoi(hms[0])
	m, err2 := strconv.Atoi(hms[1])
	sec, err3 := strconv.Atoi(hms[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("malformed time %q", parts[1])
	}
	return float64(h*3600 + m*60 + sec), nil
}

// BuildRequests derives solver requests from records: time windows opened a
// margin around the requested pickup and the direct-trip arrival.
func BuildRequests(records []model.TripRecord, marginSec, speedKph float64) []*darp.Request {
	reqs := make([]*darp.Request, 0, len(records))
	for _, rec := range records {
		pu := darp.Coord{Lon: rec.PickupLon, Lat: rec.PickupLat}
		do := darp.Coord{Lon: rec.DropoffLon, Lat: rec.DropoffLat}
		reqs = append(reqs, darp.NewRequest(rec.ID, rec.RequestedAt, pu, do, marginSec, speedKph))
	}
	return reqs
}

// SaveCheckpoint writes a filtered request set to disk so later runs can
// skip the (large) source file.
func SaveCheckpoint(path string, set model.RequestSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}

// LoadCheckpoint restores a request set saved by SaveCheckpoint.
func LoadCheckpoint(path string) (model.RequestSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.RequestSet{}, err
	}
	defer f.Close()
	var set model.RequestSet
	if err := json.NewDecoder(f).Decode(&set); err != nil {
		return model.RequestSet{}, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return set, nil
}
