// voxring-client is a headless client: it creates or joins a room, prints
// room traffic, and sends stdin lines as chat. Camera and microphone capture
// are external collaborators; this binary exists for smoke-testing rooms and
// for scripting.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voxring/voxring/audio"
	"github.com/voxring/voxring/avsync"
	"github.com/voxring/voxring/config"
	"github.com/voxring/voxring/session"
)

// printer renders room events to stdout.
type printer struct{}

func (printer) OnChat(_, name, text string) { fmt.Printf("%s: %s\n", name, text) }
func (printer) OnStatus(text string)        { fmt.Printf("* %s\n", text) }
func (printer) OnPeerJoined(_, name string) {}
func (printer) OnPeerLeft(_, name string)   { fmt.Printf("* %s left\n", name) }
func (printer) OnMute(_, name string, m bool) {
	if m {
		fmt.Printf("* %s muted\n", name)
	} else {
		fmt.Printf("* %s unmuted\n", name)
	}
}
func (printer) OnCamera(_, name string, on bool) {
	if !on {
		fmt.Printf("* %s turned their camera off\n", name)
	}
}
func (printer) OnReject(reason string) { fmt.Printf("! rejected: %s\n", reason) }

func main() {
	var (
		host string
		port int
		name string
		opus bool
	)

	root := &cobra.Command{
		Use:   "voxring-client",
		Short: "Headless voxring room client",
	}
	root.PersistentFlags().StringVar(&host, "host", "", "relay host (default "+config.DefaultHost+")")
	root.PersistentFlags().IntVar(&port, "port", 0, "relay port")
	root.PersistentFlags().StringVar(&name, "name", "anonymous", "display name")
	root.PersistentFlags().BoolVar(&opus, "opus", false, "treat received audio as Opus instead of raw PCM")

	enter := func(join string) error {
		cfg, err := config.Load(config.Options{Host: host, Port: port})
		if err != nil {
			return err
		}

		buf := avsync.New(func(f avsync.VideoFrame) {
			// Headless: frames are counted, not rendered.
			logrus.WithFields(logrus.Fields{
				"sender": f.Sender,
				"ts":     f.TS,
				"bytes":  len(f.Data),
			}).Debug("frame released")
		})

		client, err := session.Dial(cfg.Addr(), printer{}, buf)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Register(name); err != nil {
			return err
		}

		if join == "" {
			code, err := client.CreateRoom()
			if err != nil {
				return err
			}
			fmt.Printf("* room code: %s\n", code)
		} else {
			if err := client.JoinRoom(join); err != nil {
				return err
			}
			fmt.Printf("* joined %s\n", join)
		}

		go drainAudio(buf, opus)

		done := make(chan error, 1)
		go func() { done <- client.Run() }()

		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "/quit" {
					client.Leave()
					return
				}
				if line == "" {
					continue
				}
				if err := client.SendChat(line); err != nil {
					logrus.WithError(err).Warn("chat send failed")
				}
			}
			client.Leave()
		}()

		return <-done
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a room and wait for peers",
		RunE:  func(cmd *cobra.Command, args []string) error { return enter("") },
	}

	join := &cobra.Command{
		Use:   "join <code>",
		Short: "Join an existing room by code",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return enter(args[0]) },
	}

	root.AddCommand(create, join)

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("client exited")
		os.Exit(1)
	}
}

// drainAudio consumes the playback queue. With no sound device in a
// headless run, decoded chunks are dropped after decode so the queue keeps
// moving the way a playback collaborator would.
func drainAudio(buf *avsync.Buffer, opusFramed bool) {
	decoders := make(map[string]*audio.Decoder)

	for chunk := range buf.Audio() {
		var err error
		if opusFramed {
			dec, ok := decoders[chunk.Sender]
			if !ok {
				dec = audio.NewDecoder()
				decoders[chunk.Sender] = dec
			}
			_, err = dec.Decode(chunk.Data)
		} else {
			_, err = audio.PCM16(chunk.Data)
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"sender": chunk.Sender,
				"error":  err.Error(),
			}).Debug("audio chunk dropped")
		}
	}
}
