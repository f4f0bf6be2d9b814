package vault

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/peerdata/yyy/codec"
)

var licenseHeader = []string{"rid", "signature", "writers", "date", "attribution", "reviews"}

// License is one consent record. It carries real platform identities and is
// only ever stored in the license group.
type License struct {
	RID         string   `json:"rid"`
	Signature   []string `json:"signature"`
	Writers     []string `json:"writers"`
	Date        int64    `json:"date"`
	Attribution string   `json:"attribution"`
	// Reviews are the (submission id, review id) pairs the license covers.
	Reviews [][2]string `json:"reviews"`
}

// EncodeLicenses renders licenses as CSV. List columns hold JSON arrays.
func EncodeLicenses(licenses []License) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(licenseHeader); err != nil {
		return nil, err
	}
	for _, l := range licenses {
		sig, err := codec.Default.Marshal(nonNilStrings(l.Signature))
		if err != nil {
			return nil, err
		}
		writers, err := codec.Default.Marshal(nonNilStrings(l.Writers))
		if err != nil {
			return nil, err
		}
		reviews := l.Reviews
		if reviews == nil {
			reviews = [][2]string{}
		}
		revs, err := codec.Default.Marshal(reviews)
		if err != nil {
			return nil, err
		}
		row := []string{l.RID, string(sig), string(writers), strconv.FormatInt(l.Date, 10), l.Attribution, string(revs)}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeLicenses parses the output of EncodeLicenses.
func DecodeLicenses(data []byte) ([]License, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(licenseHeader)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode licenses: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("decode licenses: missing header")
	}
	for i, h := range licenseHeader {
		if rows[0][i] != h {
			return nil, fmt.Errorf("decode licenses: unexpected column %q", rows[0][i])
		}
	}

	out := make([]License, 0, len(rows)-1)
	for n, row := range rows[1:] {
		l := License{RID: row[0], Attribution: row[4]}
		if err := codec.Default.Unmarshal([]byte(row[1]), &l.Signature); err != nil {
			return nil, fmt.Errorf("decode licenses: row %d signature: %w", n+1, err)
		}
		if err := codec.Default.Unmarshal([]byte(row[2]), &l.Writers); err != nil {
			return nil, fmt.Errorf("decode licenses: row %d writers: %w", n+1, err)
		}
		if l.Date, err = strconv.ParseInt(row[3], 10, 64); err != nil {
			return nil, fmt.Errorf("decode licenses: row %d date: %w", n+1, err)
		}
		if err := codec.Default.Unmarshal([]byte(row[5]), &l.Reviews); err != nil {
			return nil, fmt.Errorf("decode licenses: row %d reviews: %w", n+1, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
