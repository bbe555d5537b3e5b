package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures the HTTP routes.
func SetupRoutes(hub *Hub, cfg Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Static client files; no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(cfg.ClientDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fs.ServeHTTP(w, r)
	}))

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn().Err(err).Str("addr", ip).Msg("upgrade failed")
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	})

	// /qr/{roomID} renders a join link as a PNG so a second player can scan
	// their way into the room.
	mux.HandleFunc("/qr/", func(w http.ResponseWriter, r *http.Request) {
		roomID := strings.TrimPrefix(r.URL.Path, "/qr/")
		if roomID == "" || strings.Contains(roomID, "/") {
			http.Error(w, "bad room id", http.StatusBadRequest)
			return
		}
		link := cfg.PublicURL + "/?room=" + url.QueryEscape(roomID)
		png, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		users, matches := hub.analytics.LiveMetrics()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"clients": hub.ClientCount(),
			"users":   users,
			"matches": matches,
		})
	})

	return mux
}
