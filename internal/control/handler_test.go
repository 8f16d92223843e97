package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/soursound/internal/generator"
	genmock "github.com/MrWong99/soursound/internal/generator/mock"
	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/internal/observe"
	"github.com/MrWong99/soursound/internal/playback"
	"github.com/MrWong99/soursound/internal/remote"
	"github.com/MrWong99/soursound/internal/session"
	audiomock "github.com/MrWong99/soursound/pkg/audio/mock"
)

// ─── fakes ───────────────────────────────────────────────────────────────────

type sentReply struct {
	ChannelID string
	ReplyTo   string
	Content   string
}

type fakeChat struct {
	mu        sync.Mutex
	next      int
	replies   []sentReply
	embeds    map[string]*discordgo.MessageEmbed // by message ID
	edits     int
	reactions []string
	unreacts  []string
}

func newFakeChat() *fakeChat {
	return &fakeChat{embeds: make(map[string]*discordgo.MessageEmbed)}
}

func (c *fakeChat) Reply(_ context.Context, channelID, messageID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, sentReply{ChannelID: channelID, ReplyTo: messageID, Content: content})
	return nil
}

func (c *fakeChat) ReplyEmbed(_ context.Context, _, _ string, embed *discordgo.MessageEmbed) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	id := fmt.Sprintf("menu-%d", c.next)
	c.embeds[id] = embed
	return id, nil
}

func (c *fakeChat) EditEmbed(_ context.Context, _, messageID string, embed *discordgo.MessageEmbed) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits++
	c.embeds[messageID] = embed
	return nil
}

func (c *fakeChat) React(_ context.Context, _, _, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reactions = append(c.reactions, emoji)
	return nil
}

func (c *fakeChat) Unreact(_ context.Context, _, _, emoji, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unreacts = append(c.unreacts, emoji)
	return nil
}

func (c *fakeChat) lastReply() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		return ""
	}
	return c.replies[len(c.replies)-1].Content
}

func (c *fakeChat) replyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies)
}

func (c *fakeChat) embed(id string) *discordgo.MessageEmbed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.embeds[id]
}

func (c *fakeChat) editCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edits
}

// fakeVoice maps guild/user pairs to voice channels.
type fakeVoice struct {
	mu       sync.Mutex
	channels map[string]string
}

func (v *fakeVoice) set(guildID, userID, channelID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.channels == nil {
		v.channels = make(map[string]string)
	}
	v.channels[guildID+"/"+userID] = channelID
}

func (v *fakeVoice) VoiceChannel(guildID, userID string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch, ok := v.channels[guildID+"/"+userID]
	return ch, ok
}

// fakePanels records reconciles and posts a panel on first use.
type fakePanels struct {
	mu       sync.Mutex
	channels []string
	seen     []session.ViewRef
	settings []noise.Settings
}

func (p *fakePanels) Reconcile(_ context.Context, st *session.State, channelID string) (remote.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channelID)
	p.settings = append(p.settings, st.Settings)
	if st.View != nil {
		p.seen = append(p.seen, *st.View)
		return remote.Edited, nil
	}
	st.View = &session.ViewRef{ChannelID: channelID, MessageID: "panel-1"}
	return remote.Created, nil
}

func (p *fakePanels) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

type stubProber struct{}

func (stubProber) Probe(context.Context, int) (float64, uint64, error) {
	return 1.5, 32 << 20, nil
}

// ─── fixture ─────────────────────────────────────────────────────────────────

type fixture struct {
	h        *Handler
	reg      *session.Registry
	chat     *fakeChat
	voice    *fakeVoice
	panels   *fakePanels
	platform *audiomock.Platform
	launcher *genmock.Launcher
	mgr      *playback.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	f := &fixture{
		reg:      session.NewRegistry(),
		chat:     newFakeChat(),
		voice:    &fakeVoice{},
		panels:   &fakePanels{},
		platform: &audiomock.Platform{},
		launcher: &genmock.Launcher{},
	}
	sup := generator.NewSupervisor(
		generator.WithLauncher(f.launcher),
		generator.WithMetrics(metrics),
		generator.WithProber(stubProber{}),
	)
	f.mgr = playback.NewManager(f.platform, sup, metrics)
	f.h = New(Config{
		Registry: f.reg,
		Catalog:  noise.DefaultCatalog(),
		Playback: f.mgr,
		Panels:   f.panels,
		Stats:    sup,
		Chat:     f.chat,
		Voice:    f.voice,
		Metrics:  metrics,
	})
	t.Cleanup(func() {
		f.h.Close()
		_ = f.mgr.Close(context.Background())
		sup.Close(context.Background())
	})
	return f
}

func (f *fixture) say(content string) {
	f.h.HandleMessage(context.Background(), Message{
		GuildID:   "g1",
		ChannelID: "text-1",
		MessageID: "cmd-1",
		AuthorID:  "u1",
		Content:   content,
	})
}

func (f *fixture) click(customID string, values ...string) string {
	return f.h.HandleInteraction(context.Background(), Interaction{
		GuildID:   "g1",
		ChannelID: "text-1",
		MessageID: "panel-1",
		UserID:    "u1",
		CustomID:  customID,
		Values:    values,
	})
}

func (f *fixture) lastArgs(t *testing.T) string {
	t.Helper()
	calls := f.launcher.Calls()
	if len(calls) == 0 {
		t.Fatal("no generator launched")
	}
	return strings.Join(calls[len(calls)-1].Args, " ")
}

// ─── typed commands ──────────────────────────────────────────────────────────

func TestHandleMessage_IgnoresNonCommands(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, content := range []string{"hello", "splay soft-breeze", "Sdance", "S"} {
		f.say(content)
	}
	f.h.HandleMessage(context.Background(), Message{ChannelID: "dm", Content: "Shelp"})

	if n := f.chat.replyCount(); n != 0 {
		t.Errorf("replies = %d, want 0", n)
	}
	if f.reg.Len() != 0 {
		t.Errorf("sessions created: %v", f.reg.Keys())
	}
}

func TestHelp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.say("Shelp")
	got := f.chat.lastReply()
	for _, want := range []string{"Sremote", "Snoises", "Splay <name>", "deep-rumble, soft-breeze, smooth-brown, wind-tunnel, bright-hiss"} {
		if !strings.Contains(got, want) {
			t.Errorf("help text missing %q:\n%s", want, got)
		}
	}
}

func TestPlay_RequiresVoice(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.say("Splay soft-breeze")

	if got := f.chat.lastReply(); got != "Join a voice channel first." {
		t.Errorf("reply = %q", got)
	}
	if n := len(f.launcher.Calls()); n != 0 {
		t.Errorf("launches = %d, want 0", n)
	}
	if f.panels.count() != 0 {
		t.Errorf("panel reconciled without voice")
	}
	if st := f.reg.GetOrCreate("g1"); st.Settings != noise.DefaultSettings() {
		t.Errorf("settings changed: %+v", st.Settings)
	}
}

func TestPlay_SoftBreezeClampsHighpass(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	f.say("Splay soft-breeze")

	if got := f.chat.lastReply(); got != "Now playing **Soft Breeze**" {
		t.Errorf("reply = %q", got)
	}
	args := f.lastArgs(t)
	for _, want := range []string{"anoisesrc=color=pink:sample_rate=48000", "lowpass=f=1500,highpass=f=1,volume=0.3"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	st := f.reg.GetOrCreate("g1")
	if st.Settings.HighpassHz != 1 || st.Settings.Preset != "soft-breeze" {
		t.Errorf("settings = %+v, want clamped soft-breeze", st.Settings)
	}
	if calls := f.platform.Calls(); len(calls) != 1 || calls[0].ChannelID != "voice-1" {
		t.Errorf("voice connects = %+v", calls)
	}
	if f.panels.count() != 1 || st.View == nil {
		t.Errorf("panel not reconciled: count=%d view=%v", f.panels.count(), st.View)
	}
}

func TestPlay_ByLabel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	f.say("Splay wind tunnel")

	if got := f.chat.lastReply(); got != "Now playing **Wind Tunnel**" {
		t.Errorf("reply = %q", got)
	}
}

func TestPlay_UnknownPresetSuggests(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	f.say("Splay soft-breez")

	got := f.chat.lastReply()
	if !strings.HasPrefix(got, "Preset not found.") || !strings.Contains(got, "Did you mean **soft-breeze**?") {
		t.Errorf("reply = %q", got)
	}
	if n := len(f.launcher.Calls()); n != 0 {
		t.Errorf("launches = %d, want 0", n)
	}

	f.say("Splay xyzzy")
	if got := f.chat.lastReply(); strings.Contains(got, "Did you mean") {
		t.Errorf("unexpected suggestion: %q", got)
	}
}

func TestPlay_GeneratorFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")
	f.launcher.LaunchError = errors.New("exec: \"ffmpeg\": executable file not found in $PATH")

	f.say("Splay deep-rumble")

	if got := f.chat.lastReply(); got != "Couldn't start the noise generator." {
		t.Errorf("reply = %q", got)
	}
	if f.panels.count() != 0 {
		t.Errorf("panel reconciled after generator failure")
	}
	if f.mgr.Status("g1").Playing {
		t.Errorf("still playing after failure")
	}
	if st := f.reg.GetOrCreate("g1"); st.Settings != noise.DefaultSettings() {
		t.Errorf("settings = %+v, want defaults after failed play", st.Settings)
	}
}

func TestPlay_VoiceJoinFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")
	f.platform.ConnectError = errors.New("voice: timeout")

	f.say("Splay deep-rumble")

	if got := f.chat.lastReply(); got != "Couldn't join your voice channel." {
		t.Errorf("reply = %q", got)
	}
}

func TestStopAndLeave(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	f.say("Splay smooth-brown")
	proc := f.launcher.Last()

	f.say("Sstop")
	if got := f.chat.lastReply(); got != "Stopped playback." {
		t.Errorf("reply = %q", got)
	}
	if proc.Running() {
		t.Error("generator still running after stop")
	}
	if s := f.mgr.Status("g1"); !s.Connected || s.Playing {
		t.Errorf("status after stop = %+v, want connected and idle", s)
	}

	f.say("Sleave")
	if got := f.chat.lastReply(); got != "Left the voice channel." {
		t.Errorf("reply = %q", got)
	}
	if s := f.mgr.Status("g1"); s.Connected {
		t.Errorf("still connected after leave")
	}
	if st := f.reg.GetOrCreate("g1"); st.Settings.Preset != "smooth-brown" {
		t.Errorf("settings lost on leave: %+v", st.Settings)
	}

	// Both are idempotent.
	f.say("Sstop")
	f.say("Sleave")
	if got := f.chat.lastReply(); got != "Left the voice channel." {
		t.Errorf("reply = %q", got)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	f.say("Sstatus")
	e := f.chat.embed("menu-1")
	if e == nil {
		t.Fatal("no status embed")
	}
	if e.Title != remote.Title || e.Footer == nil || e.Footer.Text != "Not playing." {
		t.Errorf("idle status = %q / %+v", e.Title, e.Footer)
	}

	f.say("Splay bright-hiss")
	f.say("Sstatus")
	e = f.chat.embed("menu-2")
	if e == nil || e.Footer == nil {
		t.Fatal("no status embed")
	}
	if !strings.HasPrefix(e.Footer.Text, "Generator: pid 1000") {
		t.Errorf("footer = %q", e.Footer.Text)
	}
}

func TestRemote(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.say("Sremote")
	if got := f.chat.lastReply(); got != "Join a voice channel first." {
		t.Errorf("reply = %q", got)
	}

	f.voice.set("g1", "u1", "voice-1")
	f.say("Sremote")
	if f.panels.count() != 1 {
		t.Fatalf("reconciles = %d, want 1", f.panels.count())
	}
	if n := len(f.launcher.Calls()); n != 0 {
		t.Errorf("remote started playback")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")
	f.voice.set("g2", "u2", "voice-2")

	f.say("Splay deep-rumble")
	f.h.HandleMessage(context.Background(), Message{GuildID: "g2", ChannelID: "text-2", MessageID: "cmd-2", AuthorID: "u2", Content: "Splay bright-hiss"})

	if got := f.reg.GetOrCreate("g1").Settings.Preset; got != "deep-rumble" {
		t.Errorf("g1 preset = %q", got)
	}
	if got := f.reg.GetOrCreate("g2").Settings.Preset; got != "bright-hiss" {
		t.Errorf("g2 preset = %q", got)
	}
	if n := len(f.launcher.Running()); n != 2 {
		t.Errorf("running generators = %d, want 2", n)
	}
}

// ─── callbacks ───────────────────────────────────────────────────────────────

func TestInteraction_Invalid(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	if got := f.click("bogus:thing"); got != "Invalid control." {
		t.Errorf("reply = %q", got)
	}
	if got := f.click("select:preset:g1"); got != "No selection." {
		t.Errorf("reply = %q", got)
	}
	if got := f.click("volume:inc:coarse:g2"); got != "This control belongs to another server." {
		t.Errorf("reply = %q", got)
	}
	if f.reg.Len() != 0 || len(f.launcher.Calls()) != 0 || f.panels.count() != 0 {
		t.Error("invalid control had side effects")
	}
}

func TestInteraction_NudgeInVoiceRestarts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	if got := f.click("volume:inc:coarse:g1"); got != "Updated setting." {
		t.Errorf("reply = %q", got)
	}
	if got := f.click("lowpass:dec:fine:g1"); got != "Updated setting." {
		t.Errorf("reply = %q", got)
	}

	st := f.reg.GetOrCreate("g1")
	if st.Settings.Volume != 0.5 || st.Settings.LowpassHz != 700 || st.Settings.Preset != noise.CustomPreset {
		t.Errorf("settings = %+v", st.Settings)
	}
	if n := len(f.launcher.Calls()); n != 2 {
		t.Errorf("launches = %d, want 2", n)
	}
	if n := len(f.launcher.Running()); n != 1 {
		t.Errorf("running = %d, want 1", n)
	}
	if args := f.lastArgs(t); !strings.Contains(args, "lowpass=f=700,highpass=f=10,volume=0.5") {
		t.Errorf("args = %q", args)
	}
	if f.panels.count() != 2 {
		t.Errorf("reconciles = %d, want 2", f.panels.count())
	}
}

func TestInteraction_NudgeOutsideVoiceOnlyUpdates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if got := f.click("highpass:inc:coarse:g1"); got != "Updated setting." {
		t.Errorf("reply = %q", got)
	}
	if got := f.reg.GetOrCreate("g1").Settings.HighpassHz; got != 60 {
		t.Errorf("highpass = %d, want 60", got)
	}
	if n := len(f.launcher.Calls()); n != 0 {
		t.Errorf("launches = %d, want 0", n)
	}
	if f.panels.count() != 1 {
		t.Errorf("reconciles = %d, want 1", f.panels.count())
	}
}

func TestInteraction_FailedRestartKeepsPanelInSync(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	f.say("Sremote")
	f.launcher.LaunchError = errors.New("ffmpeg crashed")

	clicks := []struct {
		id     string
		values []string
	}{
		{"lowpass:inc:coarse:g1", nil},
		{"select:color:g1", []string{"color:white"}},
		{"select:preset:g1", []string{"preset:bright-hiss"}},
		{"control:play:g1", nil},
	}
	for _, c := range clicks {
		if got := f.click(c.id, c.values...); got != "Couldn't start the noise generator." {
			t.Errorf("%s reply = %q", c.id, got)
		}
	}

	st := f.reg.GetOrCreate("g1")
	if f.panels.count() != 1 {
		t.Fatalf("reconciles = %d, want only the initial one", f.panels.count())
	}
	if shown := f.panels.settings[0]; st.Settings != shown {
		t.Errorf("session settings %+v diverge from panel %+v", st.Settings, shown)
	}

	f.launcher.LaunchError = nil
	if got := f.click("lowpass:inc:coarse:g1"); got != "Updated setting." {
		t.Errorf("reply after recovery = %q", got)
	}
	if got := f.reg.GetOrCreate("g1").Settings.LowpassHz; got != noise.DefaultSettings().LowpassHz+500 {
		t.Errorf("lowpass = %d, want one coarse step above default", got)
	}
}

func TestInteraction_AdoptsPanel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.h.HandleInteraction(context.Background(), Interaction{
		GuildID:   "g1",
		ChannelID: "text-9",
		MessageID: "panel-9",
		UserID:    "u1",
		CustomID:  "select:color:g1",
		Values:    []string{"color:white"},
	})

	want := session.ViewRef{ChannelID: "text-9", MessageID: "panel-9"}
	if len(f.panels.seen) != 1 || f.panels.seen[0] != want {
		t.Errorf("reconciled views = %+v, want %+v", f.panels.seen, want)
	}
	if got := f.reg.GetOrCreate("g1").Settings.Color; got != noise.White {
		t.Errorf("color = %q", got)
	}
}

func TestInteraction_PresetSelect(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	if got := f.click("select:preset:g1", "preset:wind-tunnel"); got != "Applied preset **Wind Tunnel**" {
		t.Errorf("reply = %q", got)
	}
	if got := f.reg.GetOrCreate("g1").Settings.Preset; got != "wind-tunnel" {
		t.Errorf("preset = %q", got)
	}
	if got := f.click("select:preset:g1", "preset:nope"); got != "Preset not found." {
		t.Errorf("reply = %q", got)
	}
	if n := len(f.launcher.Calls()); n != 1 {
		t.Errorf("launches = %d, want 1", n)
	}
}

func TestInteraction_LegacyColorSelect(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if got := f.click("select:type:g1", "type:pink"); got != "Noise type set to pink" {
		t.Errorf("reply = %q", got)
	}
	st := f.reg.GetOrCreate("g1")
	if st.Settings.Color != noise.Pink || st.Settings.Preset != noise.CustomPreset {
		t.Errorf("settings = %+v", st.Settings)
	}
}

func TestInteraction_SessionControls(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if got := f.click("control:play:g1"); got != "Join a voice channel to play audio." {
		t.Errorf("reply = %q", got)
	}
	if n := len(f.launcher.Calls()); n != 0 {
		t.Fatalf("launches = %d, want 0", n)
	}

	f.voice.set("g1", "u1", "voice-1")
	if got := f.click("control:play:g1"); got != "Playing (settings applied)." {
		t.Errorf("reply = %q", got)
	}
	if !f.mgr.Status("g1").Playing {
		t.Error("not playing after play control")
	}
	if got := f.click("control:stop:g1"); got != "Stopped playback." {
		t.Errorf("reply = %q", got)
	}
	if got := f.click("control:leave:g1"); got != "Left the voice channel." {
		t.Errorf("reply = %q", got)
	}
	if f.mgr.Status("g1").Connected {
		t.Error("still connected after leave control")
	}
}

func TestInteraction_ConcurrentNudgesSerialize(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.voice.set("g1", "u1", "voice-1")

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() { f.click("lowpass:inc:fine:g1") })
	}
	wg.Wait()

	if got := f.reg.GetOrCreate("g1").Settings.LowpassHz; got != 1800 {
		t.Errorf("lowpass = %d, want 1800", got)
	}
	if n := len(f.launcher.Running()); n != 1 {
		t.Errorf("running generators = %d, want 1", n)
	}
	if args := f.lastArgs(t); !strings.Contains(args, "lowpass=f=1800") {
		t.Errorf("last launch = %q, want the final settings", args)
	}
}

func TestSetQuickSelectTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.h.SetQuickSelectTimeout(0)
	if got := time.Duration(f.h.quickTimeout.Load()); got != DefaultQuickSelectTimeout {
		t.Errorf("timeout = %v, want default", got)
	}
	f.h.SetQuickSelectTimeout(time.Second)
	if got := time.Duration(f.h.quickTimeout.Load()); got != time.Second {
		t.Errorf("timeout = %v, want 1s", got)
	}
}
