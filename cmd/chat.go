package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/imagechat/internal/media"
	"github.com/xiaot623/gogo/imagechat/internal/wsclient"
)

var (
	chatAddr      string
	chatAPIKey    string
	chatSessionID string
	chatAudioDir  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running server from the terminal",
	Long: `Chat connects to a running imagechat server over WebSocket.

Commands:
  /image <path>   upload a PNG or JPG as the active image
  /key <api-key>  set the API key for the session
  /tts            read the latest answer aloud (saved as an mp3 file)
  /reset          clear the conversation
  /quit           exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatAddr, "addr", "ws://localhost:8080/ws", "WebSocket server address")
	chatCmd.Flags().StringVar(&chatAPIKey, "api-key", "", "API key to set on connect")
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Session ID to resume")
	chatCmd.Flags().StringVar(&chatAudioDir, "audio-dir", ".", "Directory for synthesized speech files")
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Connecting to %s...\n", chatAddr)

	client, err := wsclient.Dial(ctx, chatAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Hello(chatSessionID); err != nil {
		return err
	}
	fmt.Fprintln(out, successStyle.Render("Session established: "+client.SessionID()))

	if chatAPIKey != "" {
		if err := client.SetAPIKey(chatAPIKey); err != nil {
			return err
		}
	}

	go func() {
		if err := client.ReadEvents(func(ev wsclient.Event) { printEvent(out, ev) }); err != nil {
			log.Printf("Read error: %v", err)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-interrupt:
			fmt.Fprintln(out, "\nInterrupted")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input := strings.TrimSpace(line)
			if input == "" {
				continue
			}
			if input == "/quit" {
				fmt.Fprintln(out, "Bye!")
				return nil
			}
			if err := dispatch(ctx, client, input); err != nil {
				fmt.Fprintln(out, errorStyle.Render("Error:"), err)
			}
		}
	}
}

func dispatch(ctx context.Context, client *wsclient.Client, input string) error {
	command, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/image":
		if arg == "" {
			return fmt.Errorf("usage: /image <path>")
		}
		return client.UploadImage(ctx, arg)
	case "/key":
		if arg == "" {
			return fmt.Errorf("usage: /key <api-key>")
		}
		return client.SetAPIKey(arg)
	case "/tts":
		return client.Synthesize()
	case "/reset":
		return client.Reset()
	default:
		if strings.HasPrefix(command, "/") {
			return fmt.Errorf("unknown command: %s", command)
		}
		return client.Submit(input)
	}
}

func printEvent(out io.Writer, ev wsclient.Event) {
	switch ev.Type {
	case wsclient.TypeState:
		if ev.Session == nil {
			return
		}
		if !ev.Session.HasAPIKey {
			fmt.Fprintln(out, warningStyle.Render("Please enter your OpenAI API key with /key"))
		}
		if ev.Session.ActiveImage != nil {
			fmt.Fprintln(out, infoStyle.Render("Active image: "+ev.Session.ActiveImage.Filename))
		}
		fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("%d messages", len(ev.Session.Messages))))
	case wsclient.TypeDelta:
		fmt.Fprint(out, ev.Fragment)
	case wsclient.TypeDone:
		fmt.Fprintln(out)
	case wsclient.TypeSpeech:
		path, err := saveSpeech(chatAudioDir, ev.Audio)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("Error:"), err)
			return
		}
		fmt.Fprintln(out, successStyle.Render("Speech saved to "+path))
	case wsclient.TypeError:
		fmt.Fprintln(out, errorStyle.Render(ev.Code+":"), ev.Message)
	}
}

// saveSpeech writes a speech data URI to a new mp3 file in dir.
func saveSpeech(dir, dataURI string) (string, error) {
	audio, err := media.DecodeDataURI(dataURI)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "speech-*.mp3")
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return filepath.Clean(f.Name()), nil
}
