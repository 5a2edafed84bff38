package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"callrecorder/internal/recorder"
	"callrecorder/internal/voicebridge"
	"callrecorder/pkg/config"
	"callrecorder/pkg/logger"
)

// activeCall tracks the call and listener recording a single guild's voice
// channel, enforcing at most one active recording per guild.
type activeCall struct {
	callID   recorder.CallID
	listener *voicebridge.Listener
}

type bot struct {
	cfg        *config.Config
	log        *zap.Logger
	dispatcher *recorder.Dispatcher

	mu      sync.Mutex
	byGuild map[string]*activeCall
}

func main() {
	cfg, log := bootstrap()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := recorder.NewDispatcher(cfg.QueueCapacity, log)
	go dispatcher.Run(ctx)

	b := &bot{
		cfg:        cfg,
		log:        log,
		dispatcher: dispatcher,
		byGuild:    make(map[string]*activeCall),
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal("failed to create discord session", zap.Error(err))
	}

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsGuildVoiceStates
	dg.AddHandler(b.handleMessage)

	if err := dg.Open(); err != nil {
		log.Fatal("failed to open discord connection", zap.Error(err))
	}
	defer dg.Close()

	log.Info("call recorder bot is running, press CTRL-C to exit")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Info("shutting down, finishing any active recordings")
	b.mu.Lock()
	guilds := make([]string, 0, len(b.byGuild))
	for g := range b.byGuild {
		guilds = append(guilds, g)
	}
	b.mu.Unlock()
	for _, g := range guilds {
		b.stopRecording(g)
	}

	cancel()
	dispatcher.Wait()
}

func bootstrap() (*config.Config, *zap.Logger) {
	if err := logger.Init(os.Getenv("ENVIRONMENT")); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log := logger.Get()
	log.Info("starting call recorder bot")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	return cfg, log
}

func (b *bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}
	content := strings.TrimSpace(m.Content)

	switch {
	case content == "!record":
		b.startRecording(s, m)
	case content == "!stoprecording":
		if path, ok := b.stopRecording(m.GuildID); ok {
			_, _ = s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Recording finished, archiving to %s", path))
		} else {
			_, _ = s.ChannelMessageSend(m.ChannelID, "No active recording in this server.")
		}
	}
}

func (b *bot) startRecording(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.mu.Lock()
	if _, exists := b.byGuild[m.GuildID]; exists {
		b.mu.Unlock()
		_, _ = s.ChannelMessageSend(m.ChannelID, "A recording is already active in this server.")
		return
	}
	b.mu.Unlock()

	vs, err := findUserVoiceState(s, m.GuildID, m.Author.ID)
	if err != nil {
		_, _ = s.ChannelMessageSend(m.ChannelID, "Join a voice channel first.")
		return
	}

	vc, err := s.ChannelVoiceJoin(m.GuildID, vs.ChannelID, true, false)
	if err != nil {
		b.log.Error("failed to join voice channel", zap.Error(err))
		_, _ = s.ChannelMessageSend(m.ChannelID, "Could not join your voice channel.")
		return
	}

	callID := recorder.NewCallID()
	startedAt := time.Now()
	dirName := startedAt.Format("2006_01_02_15_04_05")
	outputDir := filepath.Join(b.cfg.OutputDir, string(callID), dirName)

	metadata := recorder.RecordingMetadata{
		CallID:            callID,
		StartedAt:         startedAt,
		OutputDir:         outputDir,
		OutputDirName:     dirName,
		MaxSamplesPerPage: b.cfg.MaxSamplesPerPage,
	}
	b.dispatcher.Start(metadata)

	listener := voicebridge.NewListener(callID, vc, vc.OpusRecv, func(update recorder.VoiceUpdate) {
		_ = b.dispatcher.Enqueue(context.Background(), update)
	}, b.log)
	listener.Start()

	b.mu.Lock()
	b.byGuild[m.GuildID] = &activeCall{callID: callID, listener: listener}
	b.mu.Unlock()

	_, _ = s.ChannelMessageSend(m.ChannelID, "Recording started.")
}

func (b *bot) stopRecording(guildID string) (string, bool) {
	b.mu.Lock()
	call, exists := b.byGuild[guildID]
	if exists {
		delete(b.byGuild, guildID)
	}
	b.mu.Unlock()
	if !exists {
		return "", false
	}

	call.listener.Stop()
	summary, ok := b.dispatcher.Finish(call.callID)
	if !ok {
		return "", false
	}

	result := <-summary.ArchiveDone
	if result.Err != nil {
		b.log.Error("archive failed", zap.Error(result.Err))
		return "", false
	}
	return result.Path, true
}

func findUserVoiceState(s *discordgo.Session, guildID, userID string) (*discordgo.VoiceState, error) {
	g, err := s.State.Guild(guildID)
	if err != nil {
		return nil, err
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID {
			return vs, nil
		}
	}
	return nil, fmt.Errorf("user %s not in a voice channel", userID)
}
