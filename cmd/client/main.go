package main

import (
	"bufio"
	"chat-gateway/codec"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Process exit codes.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config is read from the environment.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	User          string `env:"CHAT_USER,required=true"`
	GroupID       string `env:"CHAT_GROUP_ID"`
	GroupToken    string `env:"CHAT_GROUP_TOKEN,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run creates the group when none is given, exchanges the group secret for an
// access token, then relays stdin lines to the gateway and prints every frame.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 5 * time.Second}
	base := "http://" + config.ServerAddress

	groupID := config.GroupID
	if groupID == "" {
		id, err := createGroup(ctx, httpClient, base, config.User, config.GroupToken)
		if err != nil {
			return exitRuntime, err
		}
		groupID = id
		log.Info("Group created", "group_id", groupID)
	}

	accessToken, err := fetchAccessToken(ctx, httpClient, base, config.User, groupID, config.GroupToken)
	if err != nil {
		return exitRuntime, err
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+config.ServerAddress+"/ws", nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = ws.Close()
	}()

	// The first frame authenticates the session.
	if err := ws.WriteMessage(websocket.TextMessage, []byte(accessToken)); err != nil {
		return exitRuntime, fmt.Errorf("login failed: %w", err)
	}
	log.Info(fmt.Sprintf(">>> Connected to %s as %s in group %s (type :quit! to leave)",
		config.ServerAddress, config.User, groupID))

	go readStdin(ctx, ws)

	go func() {
		<-ctx.Done()
		_ = ws.Close()
	}()

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		var frame codec.Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			log.Warn("Unreadable frame", "error", err)
			continue
		}
		fmt.Println(render(frame))
	}
}

func render(f codec.Frame) string {
	at := time.UnixMilli(f.CreateAt).Format(time.TimeOnly)
	switch f.Type {
	case "CHAT":
		return fmt.Sprintf("[%s] %s: %s", at, f.FromUser, f.Content)
	case "MEMBERS":
		return fmt.Sprintf("*** members: %s", strings.Join(f.Members, ", "))
	case "UNREAD":
		return fmt.Sprintf("*** %s unread message(s)", f.Content)
	case "CONFIRM":
		return "*** logged in"
	default:
		return fmt.Sprintf("[%s] *** %s %s", at, f.FromUser, strings.ToLower(f.Type))
	}
}

func readStdin(ctx context.Context, ws *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := ws.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}
}

func createGroup(ctx context.Context, client *http.Client, base, user, groupToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/chat?user="+url.QueryEscape(user), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("token", groupToken)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create group: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create group: unexpected status %s", resp.Status)
	}
	return resp.Header.Get("group"), nil
}

func fetchAccessToken(ctx context.Context, client *http.Client, base, user, groupID, groupToken string) (string, error) {
	query := url.Values{"user": {user}, "group": {groupID}, "token": {groupToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/chat?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("access token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("access token: unexpected status %s", resp.Status)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "access-token" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("access token: no access-token cookie in response")
}
