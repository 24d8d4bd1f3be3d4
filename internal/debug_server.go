package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const defaultPrefix = "participant:"

type InspectRow struct {
	Key    string
	Type   string
	Time   string
	Entity string
	Detail string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// NewDebugServer exposes the Badger keys under endpoint as an HTML table.
// The prefix query parameter selects the key range, participants by default.
func NewDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Warn("Debug inspector scan failed", "prefix", prefix, "error", err)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	return &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// DefaultMapper understands the participant: and message: key spaces and
// falls back to the raw size for anything else.
func DefaultMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:    key,
		Type:   "RAW",
		Time:   "--:--:--",
		Entity: "--------",
		Detail: "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
	kind, id, found := strings.Cut(key, ":")
	if !found {
		return row
	}
	var fields map[string]any
	if err := json.Unmarshal(val, &fields); err != nil {
		return row
	}
	switch kind {
	case "participant":
		row.Type = "PARTICIPANT"
		row.Entity = id
		if ms, ok := fields["last_status"].(float64); ok {
			row.Time = time.UnixMilli(int64(ms)).Format("15:04:05")
		}
		row.Detail = "alive"
	case "message":
		row.Type = strings.ToUpper(fmt.Sprint(fields["type"]))
		row.Entity = strings.TrimLeft(id, "0")
		row.Time = fmt.Sprint(fields["time"])
		row.Detail = fmt.Sprintf("%v -> %v: %v", fields["from"], fields["to"], fields["text"])
	}
	return row
}
