package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agriconnect/agriconnect-api/config"
)

// realtimeTokenTTL bounds how long an issued websocket token stays usable
const realtimeTokenTTL = 15 * time.Minute

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust CORS as needed, e.g., check r.Header.Get("Origin")
	},
}

// NotificationHub stores connected users (userId -> *websocket.Conn)
type NotificationHub struct {
	clients map[string]*websocket.Conn
	mutex   sync.Mutex
}

var hub = &NotificationHub{
	clients: make(map[string]*websocket.Conn),
	mutex:   sync.Mutex{},
}

// Realtime issues short-lived tokens for the notifications websocket
type Realtime struct{}

// RealtimeTokenHandler issues a short-lived HS256 token that the websocket
// handler accepts in place of ambient credentials
func (rt Realtime) RealtimeTokenHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if body.UserID == "" {
		config.ErrorStatus("userId is required", http.StatusBadRequest, w, fmt.Errorf("userId is required"))
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": body.UserID,
		"iat": now.Unix(),
		"exp": now.Add(realtimeTokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		config.ErrorStatus("failed to sign realtime token", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"token": signed})
}

// parseRealtimeToken validates the token and returns the subject user id
func parseRealtimeToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token missing subject")
	}
	return sub, nil
}

// HandleNotificationsWebSocket upgrades the connection and registers the user
// in the hub after validating the realtime token
func HandleNotificationsWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := parseRealtimeToken(r.URL.Query().Get("token"))
	if err != nil {
		zap.S().Warnw("rejected websocket connection", "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "unauthorized"}`))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade error", "error", err)
		return
	}

	hub.mutex.Lock()
	hub.clients[userID] = conn
	hub.mutex.Unlock()
	zap.S().Debugw("user connected to /ws/notifications", "userId", userID)

	conn.SetCloseHandler(func(code int, text string) error {
		hub.mutex.Lock()
		delete(hub.clients, userID)
		hub.mutex.Unlock()
		zap.S().Debugw("user disconnected from /ws/notifications", "userId", userID)
		return nil
	})

	// Keep connection alive
	for {
		if _, _, err := conn.NextReader(); err != nil {
			conn.Close()
			break
		}
	}
}

// sendNotificationToUser pushes a notification over the user's live channel.
// Absence of a connection is not an error.
func sendNotificationToUser(userID string, notification interface{}) {
	hub.mutex.Lock()
	conn, exists := hub.clients[userID]
	hub.mutex.Unlock()

	if exists {
		err := conn.WriteJSON(map[string]interface{}{
			"event": "new_notification",
			"data":  notification,
		})
		if err != nil {
			zap.S().Warnw("error sending notification over websocket", "userId", userID, "error", err)
			hub.mutex.Lock()
			delete(hub.clients, userID)
			hub.mutex.Unlock()
			conn.Close()
		}
	}
}
