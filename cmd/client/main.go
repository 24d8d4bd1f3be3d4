package main

import (
	"bufio"
	"chat-presence/client"
	"chat-presence/domain"
	"chat-presence/infrastructure/http/server"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	URL            string        `envconfig:"CHAT_URL" default:"http://localhost:5000"`
	Name           string        `envconfig:"CHAT_NAME" required:"true"`
	StatusInterval time.Duration `envconfig:"CHAT_STATUS_INTERVAL" default:"5s"`
	PollInterval   time.Duration `envconfig:"CHAT_POLL_INTERVAL" default:"3s"`
	Limit          int           `envconfig:"CHAT_LIMIT" default:"100"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Join the room
	c := client.New(config.URL, config.Name)
	if _, err := c.Join(); err != nil {
		return exitRuntime, fmt.Errorf("unable to join as %q: %w", config.Name, err)
	}
	color.Green.Printf("Joined %s as %s. /to <name> <text> for private messages, /who to list, /quit to leave.\n", config.URL, config.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Typed lines are read in the background
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	statusTicker := time.NewTicker(config.StatusInterval)
	defer statusTicker.Stop()
	pollTicker := time.NewTicker(config.PollInterval)
	defer pollTicker.Stop()
	feed := newFeed()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case <-statusTicker.C:
			if err := c.Status(); err != nil {
				// Evicted or server gone: nothing left to keep alive
				return exitRuntime, fmt.Errorf("heartbeat failed: %w", err)
			}
		case <-pollTicker.C:
			messages, err := c.Messages(config.Limit)
			if err != nil {
				log.Warn("Unable to poll messages", "error", err)
				continue
			}
			for _, m := range feed.unseen(messages) {
				printMessage(m)
			}
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if quit := handleLine(c, strings.TrimSpace(line)); quit {
				return exitOK, nil
			}
		}
	}
}

func handleLine(c *client.Client, line string) bool {
	switch {
	case line == "":
		return false
	case line == "/quit":
		return true
	case line == "/who":
		participants, err := c.Participants()
		if err != nil {
			color.Red.Println(err)
			return false
		}
		printParticipants(participants)
	case strings.HasPrefix(line, "/to "):
		to, text, found := strings.Cut(strings.TrimPrefix(line, "/to "), " ")
		if !found {
			color.Red.Println("usage: /to <name> <text>")
			return false
		}
		if _, err := c.Send(to, text, true); err != nil {
			color.Red.Println(err)
		}
	default:
		if _, err := c.Send(domain.Broadcast, line, false); err != nil {
			color.Red.Println(err)
		}
	}
	return false
}

// feed remembers the tail already printed so that overlapping polls print each message once.
type feed struct {
	last []server.MessageResponse
}

func newFeed() *feed {
	return &feed{}
}

// unseen returns the messages following the longest overlap between the previous and the current poll.
func (f *feed) unseen(messages []server.MessageResponse) []server.MessageResponse {
	overlap := 0
	for n := min(len(f.last), len(messages)); n > 0; n-- {
		if equalMessages(f.last[len(f.last)-n:], messages[:n]) {
			overlap = n
			break
		}
	}
	f.last = messages
	return messages[overlap:]
}

func equalMessages(a, b []server.MessageResponse) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func printMessage(m server.MessageResponse) {
	header := fmt.Sprintf("(%s) %s", m.Time, m.From)
	switch domain.MessageType(m.Type) {
	case domain.StatusMessage:
		color.Gray.Printf("%s %s\n", header, m.Text)
	case domain.PrivateMessage:
		fmt.Printf("%s %s: %s\n", color.New(color.FgMagenta, color.OpBold).Render(header), color.Magenta.Sprintf("(private to %s)", m.To), m.Text)
	default:
		fmt.Printf("%s: %s\n", color.New(color.BgBlack, color.FgGreen).Render(header), m.Text)
	}
}

func printParticipants(participants []server.ParticipantResponse) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Last status"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, p := range participants {
		table.Append([]string{p.Name, time.UnixMilli(p.LastStatus).Format(time.TimeOnly)})
	}
	table.Render()
}
