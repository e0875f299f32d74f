// Package archive decodes location-history exports. The supported
// format is the Google Takeout location history JSON: an object whose
// "locations" array holds E7-scaled coordinates and either an RFC3339
// timestamp (current exports) or a millisecond epoch string (older
// ones). A bare top-level array of records is accepted too.
package archive

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/wherewasi/wherewasi/internal/model"
)

// Record is one raw entry of a location-history archive.
type Record struct {
	LatitudeE7  int64  `json:"latitudeE7"`
	LongitudeE7 int64  `json:"longitudeE7"`
	Accuracy    int    `json:"accuracy"`
	Timestamp   string `json:"timestamp"`
	TimestampMs string `json:"timestampMs"`
}

// Time decodes the record's timestamp in UTC. ok is false when no
// usable timestamp is present.
func (r Record) Time() (time.Time, bool) {
	if r.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
		if err != nil {
			return time.Time{}, false
		}
		return ts.UTC(), true
	}
	if r.TimestampMs != "" {
		ms, err := strconv.ParseInt(r.TimestampMs, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// Point converts the record to a model.Point. ok is false when the
// timestamp is missing or unparsable; coordinate validity is left to
// the consumer so it can count the two failure kinds separately.
func (r Record) Point() (model.Point, bool) {
	ts, ok := r.Time()
	if !ok {
		return model.Point{}, false
	}
	return model.Point{
		Time:     ts,
		Lat:      float64(r.LatitudeE7) / 1e7,
		Lng:      float64(r.LongitudeE7) / 1e7,
		Accuracy: r.Accuracy,
	}, true
}

// Stream decodes an archive lazily, sending one record at a time. Both
// channels are closed when decoding completes. A decode error ends the
// stream; it arrives on the error channel.
func Stream(ctx context.Context, r io.Reader) (<-chan Record, <-chan error) {
	outCh := make(chan Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "archive: read opening token")
			return
		}

		delim, ok := tok.(json.Delim)
		if !ok {
			errCh <- eris.Errorf("archive: expected '{' or '[', got %v", tok)
			return
		}

		switch delim {
		case '[':
			// Bare array export.
			if err := streamArray(ctx, decoder, outCh); err != nil {
				errCh <- err
			}
			return
		case '{':
		default:
			errCh <- eris.Errorf("archive: expected '{' or '[', got %v", tok)
			return
		}

		for decoder.More() {
			keyTok, err := decoder.Token()
			if err != nil {
				errCh <- eris.Wrap(err, "archive: read object key")
				return
			}
			key, ok := keyTok.(string)
			if !ok {
				errCh <- eris.Errorf("archive: expected object key, got %v", keyTok)
				return
			}

			if key != "locations" {
				var skip json.RawMessage
				if err := decoder.Decode(&skip); err != nil {
					errCh <- eris.Wrapf(err, "archive: skip %q", key)
					return
				}
				continue
			}

			arrTok, err := decoder.Token()
			if err != nil {
				errCh <- eris.Wrap(err, "archive: read locations token")
				return
			}
			if d, ok := arrTok.(json.Delim); !ok || d != '[' {
				errCh <- eris.Errorf("archive: locations is not an array, got %v", arrTok)
				return
			}
			if err := streamArray(ctx, decoder, outCh); err != nil {
				errCh <- err
			}
			return
		}

		errCh <- eris.New("archive: no locations array found")
	}()

	return outCh, errCh
}

func streamArray(ctx context.Context, decoder *json.Decoder, outCh chan<- Record) error {
	for decoder.More() {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "archive: context cancelled")
		}

		var rec Record
		if err := decoder.Decode(&rec); err != nil {
			return eris.Wrap(err, "archive: decode record")
		}

		select {
		case outCh <- rec:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "archive: context cancelled")
		}
	}

	// Consume the closing bracket.
	if _, err := decoder.Token(); err != nil && err != io.EOF {
		return eris.Wrap(err, "archive: read closing token")
	}
	return nil
}
