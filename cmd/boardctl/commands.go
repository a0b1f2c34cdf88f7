package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"posterboard/internal/board"
	"posterboard/internal/geometry"
	"posterboard/internal/models"
)

func newFlags(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// oneArg parses fs and returns its single positional argument.
func oneArg(fs *flag.FlagSet, args []string, what string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected one %s", what)
	}
	return fs.Arg(0), nil
}

func printPins(w io.Writer, pins []models.Pin, withCounts bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if withCounts {
		fmt.Fprintln(tw, "ID\tX\tY\tAUTHOR\tREPLIES\tCREATED\tBODY")
	} else {
		fmt.Fprintln(tw, "ID\tX\tY\tAUTHOR\tCREATED\tBODY")
	}
	for _, p := range pins {
		body := strings.ReplaceAll(p.Body, "\n", " ")
		created := p.CreatedAt.Local().Format(time.DateTime)
		if withCounts {
			var n int64
			if p.ReplyCount != nil {
				n = *p.ReplyCount
			}
			fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%s\t%d\t%s\t%s\n", p.ID, p.X, p.Y, p.DisplayAuthor(), n, created, body)
		} else {
			fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%s\t%s\t%s\n", p.ID, p.X, p.Y, p.DisplayAuthor(), created, body)
		}
	}
	return tw.Flush()
}

func printReplies(w io.Writer, replies []models.Reply) {
	for _, r := range replies {
		fmt.Fprintf(w, "[%s] %s: %s\n", r.CreatedAt.Local().Format(time.TimeOnly), r.DisplayAuthor(), r.Body)
	}
}

func runPins(ctx context.Context, a *app, args []string) error {
	if err := newFlags(a, "pins").Parse(args); err != nil {
		return err
	}
	pins, err := a.client.ListPins(ctx)
	if err != nil {
		return err
	}
	return printPins(a.out, pins, false)
}

func runList(ctx context.Context, a *app, args []string) error {
	if err := newFlags(a, "list").Parse(args); err != nil {
		return err
	}
	if err := a.ensureTeam(ctx); err != nil {
		return err
	}
	pins, err := a.client.ListPinsWithReplyCounts(ctx)
	if err != nil {
		return err
	}
	return printPins(a.out, pins, true)
}

// newController builds a headless board controller over the client.
func (a *app) newController(vp *virtualViewport) *board.Controller {
	return board.NewController(a.client, a.client, vp, &cliAlerter{w: a.errOut}, board.Options{})
}

func runPost(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "post")
	x := fs.Float64("x", -1, "horizontal position, 0 is the left edge and 1 the right")
	y := fs.Float64("y", -1, "vertical position, 0 is the top edge and 1 the bottom")
	author := fs.String("author", "", "display name (blank posts anonymously)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	body := strings.Join(fs.Args(), " ")
	if !geometry.OnPoster(geometry.Point{X: *x, Y: *y}) {
		return errors.New("-x and -y must both be between 0 and 1")
	}

	vp := newVirtualViewport(a.posterSize(ctx), geometry.Size{W: 1280, H: 800})
	ctrl := a.newController(vp)
	defer ctrl.Close()

	if err := ctrl.ArmPlacement(); err != nil {
		return err
	}
	box := vp.PosterBox()
	if _, err := ctrl.Place(geometry.Point{X: box.X + *x*box.W, Y: box.Y + *y*box.H}); err != nil {
		return err
	}
	pin, err := ctrl.Submit(ctx, *author, body)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "pinned %s at (%.3f, %.3f)\n", pin.ID, pin.X, pin.Y)
	return nil
}

// posterSize is the current poster's pixel size, or a square when the
// server has none.
func (a *app) posterSize(ctx context.Context) geometry.Size {
	info, err := a.client.CurrentPoster(ctx)
	if err != nil || info.Width <= 0 || info.Height <= 0 {
		return geometry.Size{W: 1000, H: 1000}
	}
	return geometry.Size{W: float64(info.Width), H: float64(info.Height)}
}

func runDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "delete")
	team := fs.Bool("team", false, "unlock with the team secret first")
	id, err := oneArg(fs, args, "pin id")
	if err != nil {
		return err
	}
	if *team {
		if err := a.ensureTeam(ctx); err != nil {
			return err
		}
	}

	ctrl := a.newController(newVirtualViewport(geometry.Size{W: 1000, H: 1000}, geometry.Size{W: 1280, H: 800}))
	defer ctrl.Close()
	if err := ctrl.DeletePin(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n", id)
	return nil
}

func runReply(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "reply")
	author := fs.String("author", "", "display name (blank posts anonymously)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("usage: reply [-author NAME] <pin-id> <text...>")
	}
	id := fs.Arg(0)
	body := strings.Join(fs.Args()[1:], " ")

	ctrl := a.newController(newVirtualViewport(geometry.Size{W: 1000, H: 1000}, geometry.Size{W: 1280, H: 800}))
	defer ctrl.Close()
	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	if err := ctrl.OpenPin(ctx, id); err != nil {
		return err
	}
	if err := ctrl.Reply(ctx, body, *author); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "reply sent")
	return nil
}

func runReplies(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(newFlags(a, "replies"), args, "pin id")
	if err != nil {
		return err
	}
	replies, err := a.client.ListReplies(ctx, id)
	if err != nil {
		return err
	}
	printReplies(a.out, replies)
	return nil
}

func runWatch(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "watch")
	pinID := fs.String("pin", "", "watch one pin's replies instead of the board")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var sub board.Subscription
	var err error
	if *pinID != "" {
		sub, err = a.client.SubscribeReplies(ctx, *pinID)
	} else {
		sub, err = a.client.SubscribeBoard(ctx)
	}
	if err != nil {
		return err
	}
	defer sub.Close()
	fmt.Fprintln(a.errOut, "watching, ctrl-c to stop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return board.ErrFeedClosed
			}
			printEvent(a.out, ev)
		}
	}
}

func printEvent(w io.Writer, ev board.Event) {
	switch ev.Type {
	case board.EventPinCreated:
		fmt.Fprintf(w, "+ pin %s (%.3f, %.3f) %s: %s\n", ev.Pin.ID, ev.Pin.X, ev.Pin.Y, ev.Pin.DisplayAuthor(), ev.Pin.Body)
	case board.EventPinDeleted:
		fmt.Fprintf(w, "- pin %s\n", ev.PinID)
	case board.EventReplyCreated:
		fmt.Fprintf(w, "> %s %s: %s\n", ev.PinID, ev.Reply.DisplayAuthor(), ev.Reply.Body)
	case board.EventDropped:
		fmt.Fprintln(w, "! events were dropped, refresh to resync")
	}
}

func runFlyTo(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "flyto")
	width := fs.Float64("width", 1280, "viewport width")
	height := fs.Float64("height", 800, "viewport height")
	id, err := oneArg(fs, args, "pin id")
	if err != nil {
		return err
	}

	vp := newVirtualViewport(a.posterSize(ctx), geometry.Size{W: *width, H: *height})
	ctrl := a.newController(vp)
	defer ctrl.Close()

	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	if err := ctrl.FlyTo(ctx, id); err != nil {
		return err
	}

	t := vp.Transform()
	fmt.Fprintf(a.out, "viewport: translate(%.1f, %.1f) scale(%.1f)\n", t.X, t.Y, t.Scale)
	for _, m := range ctrl.Markers() {
		if m.PinID == id {
			fmt.Fprintf(a.out, "pin on screen at (%.1f, %.1f)\n", m.Screen.X, m.Screen.Y)
		}
	}
	if _, replies, ok := ctrl.Thread(); ok {
		printReplies(a.out, replies)
	}
	return nil
}

func runUnlock(ctx context.Context, a *app, args []string) error {
	if err := newFlags(a, "unlock").Parse(args); err != nil {
		return err
	}
	if a.secret == "" {
		return errors.New("set BOARD_TEAM_SECRET")
	}
	expires, err := a.client.Unlock(ctx, a.secret)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.errOut, "token valid until %s\n", expires.Local().Format(time.DateTime))
	fmt.Fprintln(a.out, a.client.Token())
	return nil
}

func runPoster(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "poster")
	upload := fs.String("upload", "", "image file to upload as the new poster")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *upload == "" {
		info, err := a.client.CurrentPoster(ctx)
		if err != nil {
			return err
		}
		printPoster(a.out, info)
		return nil
	}

	if err := a.ensureTeam(ctx); err != nil {
		return err
	}
	f, err := os.Open(*upload)
	if err != nil {
		return err
	}
	defer f.Close()

	ctrl := a.newController(newVirtualViewport(geometry.Size{W: 1000, H: 1000}, geometry.Size{W: 1280, H: 800}))
	defer ctrl.Close()
	info, err := ctrl.UploadPoster(ctx, a.client, filepath.Base(*upload), f)
	if err != nil {
		return err
	}
	printPoster(a.out, info)
	return nil
}

func printPoster(w io.Writer, info *models.PosterInfo) {
	fmt.Fprintf(w, "url: %s\n", info.URL)
	if info.Width > 0 {
		fmt.Fprintf(w, "size: %dx%d\n", info.Width, info.Height)
	}
	if info.ThumbnailURL != "" {
		fmt.Fprintf(w, "thumbnail: %s\n", info.ThumbnailURL)
	}
}
