// seatctl is a terminal client for the booking API: search trips, hold and
// release seats, follow a trip's seat map live, and verify payments.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shuttlebook/internal/client"
	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	server  string
	token   string
	guestID string
	store   string
	wait    bool
}

func run(args []string) error {
	var opts options
	flags := pflag.NewFlagSet("seatctl", pflag.ContinueOnError)
	flags.StringVar(&opts.server, "server", envOr("SHUTTLEBOOK_SERVER", "http://localhost:8080"), "API base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("SHUTTLEBOOK_TOKEN"), "bearer token of a signed-in user")
	flags.StringVar(&opts.guestID, "guest", os.Getenv("SHUTTLEBOOK_GUEST"), "guest id to reuse when not signed in")
	flags.StringVar(&opts.store, "store", "", "directory of the local draft store (draft command)")
	flags.BoolVar(&opts.wait, "wait", false, "hold: keep the seats and follow the trip until the hold expires or Ctrl-C")
	flags.Usage = func() { printHelp(flags) }
	if err := flags.Parse(args); err != nil {
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		printHelp(flags)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(opts.server, opts.token, opts.guestID)
	cmd, rest := rest[0], rest[1:]
	switch cmd {
	case "trips":
		return cmdTrips(ctx, c, rest)
	case "seats":
		return cmdSeats(ctx, c, rest)
	case "hold":
		return cmdHold(ctx, c, rest, opts.wait)
	case "release":
		return cmdRelease(ctx, c, rest)
	case "watch":
		return cmdWatch(ctx, c, rest)
	case "verify":
		return cmdVerify(ctx, c, rest)
	case "draft":
		return cmdDraft(ctx, c, rest, opts.store)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printHelp(flags *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, `usage: seatctl [flags] <command> [args]

commands:
  trips <routeId> <date>          list bookable trips
  seats <tripId>                  show the seat map
  hold <tripId> <seat>...         hold seats (add --wait to keep them)
  release <tripId> <seat>...      release held seats
  watch <tripId>                  follow the seat map live
  verify <bookingId> <reference>  confirm a paid booking
  draft <bookingType> [draftId]   show the draft a form would resume from

flags:`)
	flags.PrintDefaults()
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func cmdTrips(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return errors.New("trips needs <routeId> <date>")
	}
	trips, err := c.SearchTrips(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if len(trips) == 0 {
		fmt.Println("no trips with free seats")
		return nil
	}
	for _, t := range trips {
		fmt.Printf("#%d  %s %s  fare=%d  free=%d/%d  %s\n", t.ID, t.DepartureDate, t.DeparturePeriod, t.Fare, t.Available, t.Capacity, t.Status)
	}
	return nil
}

func cmdSeats(ctx context.Context, c *client.Client, args []string) error {
	tripID, _, err := tripAndSeats(args, 0)
	if err != nil {
		return err
	}
	view, err := c.Trip(ctx, tripID)
	if err != nil {
		return err
	}
	printSeatMap(view)
	return nil
}

func cmdHold(ctx context.Context, c *client.Client, args []string, wait bool) error {
	tripID, seats, err := tripAndSeats(args, 1)
	if err != nil {
		return err
	}
	session := client.NewHoldSession(c, tripID)
	for _, seat := range seats {
		if _, err := session.Toggle(ctx, seat); err != nil {
			if domain.IsSeatUnavailable(err) {
				fmt.Printf("seat %d is taken, pick another\n", seat)
				continue
			}
			session.Close(context.Background())
			return err
		}
	}
	fmt.Printf("holding %v for %s\n", session.Seats(), session.Remaining().Round(time.Second))
	if id := c.GuestID(); id != "" && !c.Authenticated() {
		fmt.Printf("guest id: %s (pass --guest to keep these holds)\n", id)
	}
	if !wait || len(session.Seats()) == 0 {
		return nil
	}

	defer session.Close(context.Background())
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = c.Watch(watchCtx, tripID, func(v models.TripView) {
			session.Apply(v)
			fmt.Printf("update: free=%d mine=%v\n", v.Available, session.Seats())
		})
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("releasing seats")
			return nil
		case <-ticker.C:
			if err := session.CheckExpiry(ctx); err != nil {
				fmt.Println(err)
				return nil
			}
		}
	}
}

func cmdRelease(ctx context.Context, c *client.Client, args []string) error {
	tripID, seats, err := tripAndSeats(args, 1)
	if err != nil {
		return err
	}
	n, err := c.Release(ctx, tripID, seats)
	if err != nil {
		return err
	}
	fmt.Printf("released %d seat(s)\n", n)
	return nil
}

func cmdWatch(ctx context.Context, c *client.Client, args []string) error {
	tripID, _, err := tripAndSeats(args, 0)
	if err != nil {
		return err
	}
	return c.Watch(ctx, tripID, func(v models.TripView) {
		fmt.Printf("--- %s\n", time.Now().Format(time.TimeOnly))
		printSeatMap(v)
	})
}

func cmdVerify(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return errors.New("verify needs <bookingId> <reference>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid booking id %q", args[0])
	}
	b, err := c.VerifyPayment(ctx, id, args[1])
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(b, "", "  ")
	fmt.Println(string(out))
	return nil
}

func cmdDraft(ctx context.Context, c *client.Client, args []string, dir string) error {
	if len(args) < 1 {
		return errors.New("draft needs <bookingType> [draftId]")
	}
	t := models.BookingType(args[0])
	if !t.Valid() {
		return fmt.Errorf("unknown booking type %q", args[0])
	}
	if dir == "" {
		return errors.New("draft needs --store")
	}
	store, err := client.OpenLocalStore(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	draftID := ""
	if len(args) > 1 {
		draftID = args[1]
	}
	p := &client.DraftPersister{Store: store, API: c, Type: t}
	r, err := p.Resume(ctx, draftID)
	if err != nil {
		return err
	}
	if r.Notice != nil {
		fmt.Printf("could not resume draft %s: %v\n", draftID, r.Notice)
	}
	fmt.Printf("source=%s step=%d\n", r.Source, r.Step)
	if len(r.FormData) > 0 {
		fmt.Println(string(r.FormData))
	}
	return nil
}

func tripAndSeats(args []string, minSeats int) (int64, []int, error) {
	if len(args) < 1+minSeats {
		return 0, nil, errors.New("missing <tripId> or seats")
	}
	tripID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || tripID <= 0 {
		return 0, nil, fmt.Errorf("invalid trip id %q", args[0])
	}
	seats := make([]int, 0, len(args)-1)
	seen := map[int]bool{}
	for _, a := range args[1:] {
		n, err := strconv.Atoi(a)
		if err != nil || n <= 0 {
			return 0, nil, fmt.Errorf("invalid seat %q", a)
		}
		// toggling a seat twice would release it again
		if seen[n] {
			continue
		}
		seen[n] = true
		seats = append(seats, n)
	}
	return tripID, seats, nil
}

var seatGlyph = map[models.SeatState]string{
	models.SeatTaken:       "X",
	models.SeatHeldByOther: "h",
	models.SeatHeldBySelf:  "*",
	models.SeatAvailable:   ".",
}

func printSeatMap(v models.TripView) {
	var b strings.Builder
	for _, s := range v.Seats {
		fmt.Fprintf(&b, "%d%s ", s.Seat, seatGlyph[s.State])
	}
	fmt.Printf("trip #%d %s %s  free=%d\n%s\n", v.ID, v.DepartureDate, v.DeparturePeriod, v.Available, strings.TrimSpace(b.String()))
	if v.HoldExpiresAt != nil {
		fmt.Printf("your hold expires in %s\n", time.Until(*v.HoldExpiresAt).Round(time.Second))
	}
}
