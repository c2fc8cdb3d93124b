package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/eventflow/internal/app"
	"github.com/and161185/eventflow/internal/model"
	"github.com/and161185/eventflow/internal/present"
	"github.com/and161185/eventflow/internal/service"
)

const (
	dateLayout  = "02/01/2006"
	clockLayout = "15:04"
)

// ------- parsers -------

// parseDate reads dd/mm/yyyy; empty means unset.
func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, usageErr("date must be dd/mm/yyyy")
	}
	return t, nil
}

// parseClock reads HH:MM; empty means unset.
func parseClock(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, usageErr("time must be HH:MM")
	}
	return t, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}

func readImage(path string) (*service.Image, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &service.Image{Filename: filepath.Base(path), Data: b}, nil
}

// ------- renderers -------

func eventLine(r app.EventRow) string {
	return fmt.Sprintf("%s  %s  %s | %s  %s", r.ID, r.Name, present.Date(r.Date), r.Category, present.Price(r.Price))
}

func (c *cli) printRows(rows []app.EventRow, asJSON bool) {
	if asJSON {
		printJSON(c.out, rows)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "Nenhum evento encontrado.")
		return
	}
	for _, r := range rows {
		fmt.Fprintln(c.out, eventLine(r))
	}
}

func (c *cli) printMarkers(views []model.EventView, asJSON bool) {
	if asJSON {
		printJSON(c.out, views)
		return
	}
	for _, v := range views {
		fmt.Fprintf(c.out, "%s  %s  (%.6f, %.6f)  %s\n",
			v.ID, v.Name, v.Location.Lat.Value, v.Location.Long.Value, present.Place(v.Location))
	}
}

// ------- events -------

func (c *cli) events(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	q := fs.String("q", "", "filter by name")
	watch := fs.Bool("watch", false, "keep polling until interrupted")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)

	l := c.app.NewEventList()
	l.Search(*q)
	if !*watch {
		err := l.Mount(ctx)
		l.Unmount()
		if err != nil {
			return err
		}
		c.printRows(l.Rows(), *asJSON)
		return nil
	}

	l.OnUpdate(func(rows []app.EventRow) {
		c.emit(func() {
			fmt.Fprintf(c.out, "--- %s ---\n", time.Now().Format("15:04:05"))
			c.printRows(rows, *asJSON)
		})
	})
	if err := l.Mount(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	<-ctx.Done()
	l.Unmount()
	return nil
}

// reload fetches the list once, the way a screen does on mount.
func reload(l *app.EventList) func(context.Context) error {
	return func(ctx context.Context) error {
		err := l.Mount(ctx)
		l.Unmount()
		return err
	}
}

func (c *cli) event(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("event", flag.ExitOnError)
	id := fs.String("id", "", "event id")
	_ = fs.Parse(args)
	if *id == "" {
		return usageErr("need -id")
	}

	v, err := c.app.Events.Get(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, v.Name)
	fmt.Fprintln(c.out, present.When(v.Date))
	fmt.Fprintln(c.out, present.TimeRange(v.StartAt, v.EndAt))
	fmt.Fprintln(c.out, present.Place(v.Location))
	fmt.Fprintln(c.out, present.Price(v.Price))
	if v.Expand.Category != nil {
		fmt.Fprintln(c.out, v.Expand.Category.Name)
	}
	if v.Description != "" {
		fmt.Fprintf(c.out, "\n%s\n", v.Description)
	}
	if u := c.app.Events.ThumbnailURL(v.Event); u != "" {
		fmt.Fprintf(c.out, "\n%s\n", u)
	}
	return nil
}

func (c *cli) createEvent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-event", flag.ExitOnError)
	name := fs.String("name", "", "event name")
	desc := fs.String("description", "", "description")
	cat := fs.String("category", "", "category id")
	loc := fs.String("location", "", "location id")
	date := fs.String("date", "", "dd/mm/yyyy (default today)")
	start := fs.String("start", "", "HH:MM (default now)")
	end := fs.String("end", "", "HH:MM (default now)")
	price := fs.String("price", "", "ticket price")
	image := fs.String("image", "", "thumbnail file")
	_ = fs.Parse(args)

	form := service.NewEventForm(time.Now())
	form.Name, form.Description = *name, *desc
	form.CategoryID, form.LocationID = *cat, *loc
	form.Price = *price

	var err error
	for _, f := range []struct {
		dst   *time.Time
		in    string
		parse func(string) (time.Time, error)
	}{{&form.Date, *date, parseDate}, {&form.StartAt, *start, parseClock}, {&form.EndAt, *end, parseClock}} {
		t, perr := f.parse(f.in)
		if perr != nil {
			return perr
		}
		if !t.IsZero() {
			*f.dst = t
		}
	}
	if form.Image, err = readImage(*image); err != nil {
		return err
	}

	l := c.app.NewEventList()
	ev, err := c.app.SubmitEvent(ctx, &form, reload(l))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Evento criado com sucesso! %s\n", ev.ID)
	c.printRows(l.Rows(), false)
	return nil
}

func (c *cli) rmEvent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm-event", flag.ExitOnError)
	id := fs.String("id", "", "event id")
	yes := fs.Bool("y", false, "do not ask")
	_ = fs.Parse(args)
	if *id == "" {
		return usageErr("need -id")
	}

	l := c.app.NewEventList()
	deleted, err := service.ConfirmDelete(ctx, c.confirmer(*yes), "Deseja realmente excluir o evento?",
		func(ctx context.Context) error { return c.app.Events.Delete(ctx, *id) },
		reload(l))
	if deleted {
		fmt.Fprintln(c.out, "Evento excluído com sucesso!")
		if err == nil {
			c.printRows(l.Rows(), false)
		}
	}
	return err
}

func (c *cli) eventMap(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	watch := fs.Bool("watch", false, "keep polling until interrupted")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)

	m := c.app.NewEventMap()
	if !*watch {
		err := m.Mount(ctx)
		m.Unmount()
		if err != nil {
			return err
		}
		c.printMarkers(m.Markers(), *asJSON)
		return nil
	}

	m.OnUpdate(func(v []model.EventView) {
		c.emit(func() {
			fmt.Fprintf(c.out, "--- %s ---\n", time.Now().Format("15:04:05"))
			c.printMarkers(v, *asJSON)
		})
	})
	if err := m.Mount(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	<-ctx.Done()
	m.Unmount()
	return nil
}

// ------- categories -------

func (c *cli) categories(ctx context.Context) error {
	cats, err := c.app.Categories.List(ctx)
	if err != nil {
		return err
	}
	for _, cat := range cats {
		fmt.Fprintf(c.out, "%s  %s\n", cat.ID, cat.Name)
	}
	return nil
}

func (c *cli) addCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-category", flag.ExitOnError)
	name := fs.String("name", "", "category name")
	_ = fs.Parse(args)

	cat, err := c.app.Categories.Create(ctx, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Categoria criada com sucesso! %s\n", cat.ID)
	return nil
}

func (c *cli) renameCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rename-category", flag.ExitOnError)
	id := fs.String("id", "", "category id")
	name := fs.String("name", "", "new name")
	_ = fs.Parse(args)
	if *id == "" {
		return usageErr("need -id")
	}

	if _, err := c.app.Categories.Rename(ctx, *id, *name); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Categoria atualizada com sucesso!")
	return nil
}

func (c *cli) rmCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm-category", flag.ExitOnError)
	id := fs.String("id", "", "category id")
	yes := fs.Bool("y", false, "do not ask")
	_ = fs.Parse(args)
	if *id == "" {
		return usageErr("need -id")
	}

	deleted, err := service.ConfirmDelete(ctx, c.confirmer(*yes), "Deseja realmente excluir a categoria?",
		func(ctx context.Context) error { return c.app.Categories.Delete(ctx, *id) },
		c.categories)
	if deleted && err == nil {
		fmt.Fprintln(c.out, "Categoria excluída com sucesso!")
	}
	return err
}

// ------- locations -------

func (c *cli) locations(ctx context.Context) error {
	locs, err := c.app.Locations.List(ctx)
	if err != nil {
		return err
	}
	for i := range locs {
		fmt.Fprintf(c.out, "%s  %s\n", locs[i].ID, present.Place(&locs[i]))
	}
	return nil
}

func (c *cli) addLocation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-location", flag.ExitOnError)
	name := fs.String("name", "", "location name")
	addr := fs.String("address", "", "address")
	lat := fs.String("lat", "", "latitude")
	long := fs.String("long", "", "longitude")
	geocode := fs.Bool("geocode", false, "fill the address from the coordinates")
	_ = fs.Parse(args)

	var (
		l   model.Location
		err error
	)
	if *geocode {
		la, perr := parseFloat(*lat)
		if perr != nil {
			return usageErr("-geocode needs numeric -lat and -long")
		}
		lo, perr := parseFloat(*long)
		if perr != nil {
			return usageErr("-geocode needs numeric -lat and -long")
		}
		l, err = c.app.Locations.CreateFromPoint(ctx, *name, la, lo)
	} else {
		l, err = c.app.Locations.Create(ctx, service.LocationInput{Name: *name, Address: *addr, Lat: *lat, Long: *long})
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s  %s\n", l.ID, present.Place(&l))
	return nil
}

func (c *cli) rmLocation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm-location", flag.ExitOnError)
	id := fs.String("id", "", "location id")
	yes := fs.Bool("y", false, "do not ask")
	_ = fs.Parse(args)
	if *id == "" {
		return usageErr("need -id")
	}

	deleted, err := service.ConfirmDelete(ctx, c.confirmer(*yes), "Deseja realmente excluir o local?",
		func(ctx context.Context) error { return c.app.Locations.Delete(ctx, *id) },
		c.locations)
	if deleted && err == nil {
		fmt.Fprintln(c.out, "Local excluído com sucesso!")
	}
	return err
}
