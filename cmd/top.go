package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"
	"github.com/webitel/event-fanout-service/internal/domain/model"
)

const sparklineWidth = 60

func topCmd() *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Live dashboard of a running bridge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "http://localhost:8080",
				Usage: "Base URL of the bridge HTTP server",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: time.Second,
				Usage: "Refresh interval",
			},
		},
		Action: func(c *cli.Context) error {
			client := &statsClient{
				base: strings.TrimRight(c.String("addr"), "/"),
				http: &http.Client{Timeout: 5 * time.Second},
			}
			return runTop(c.Context, client, c.Duration("interval"))
		},
	}
}

type statsClient struct {
	base string
	http *http.Client
}

func (s *statsClient) Fetch(ctx context.Context) (model.HubStats, error) {
	var stats model.HubStats

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/api/v1/stats", nil)
	if err != nil {
		return stats, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return stats, fmt.Errorf("top: fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("top: fetch stats: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("top: decode stats: %w", err)
	}
	return stats, nil
}

// sample is the difference between two consecutive stats polls.
type sample struct {
	published, accepted, dropped, evicted float64
}

func diff(prev, cur model.HubStats) sample {
	// A restarted bridge resets its counters.
	if cur.Published < prev.Published {
		prev = model.HubStats{}
	}
	return sample{
		published: float64(cur.Published - prev.Published),
		accepted:  float64(cur.Accepted - prev.Accepted),
		dropped:   float64(cur.Dropped - prev.Dropped),
		evicted:   float64(cur.Evicted - prev.Evicted),
	}
}

func statsRows(s model.HubStats) [][]string {
	return [][]string{
		{"metric", "value"},
		{"subscribers", fmt.Sprintf("%d (%d active, %d draining)", s.Subscribers, s.Active, s.Draining)},
		{"head seq", fmt.Sprintf("%d", s.HeadSeq)},
		{"accepted", fmt.Sprintf("%d", s.Accepted)},
		{"dropped", fmt.Sprintf("%d", s.Dropped)},
		{"evicted", fmt.Sprintf("%d", s.Evicted)},
		{"policy", fmt.Sprintf("%s / %d", s.Policy, s.Capacity)},
		{"uptime", s.Uptime.Truncate(time.Second).String()},
	}
}

// pushWindow appends v, keeping the last n values.
func pushWindow(data []float64, v float64, n int) []float64 {
	data = append(data, v)
	if len(data) > n {
		data = data[len(data)-n:]
	}
	return data
}

type dashboard struct {
	header *widgets.Paragraph
	table  *widgets.Table
	rate   *widgets.Sparkline
	group  *widgets.SparklineGroup
	bars   *widgets.BarChart

	prev    model.HubStats
	hasPrev bool
}

func newDashboard(addr string) *dashboard {
	d := &dashboard{
		header: widgets.NewParagraph(),
		table:  widgets.NewTable(),
		rate:   widgets.NewSparkline(),
		bars:   widgets.NewBarChart(),
	}

	d.header.Title = ServiceName
	d.header.Text = fmt.Sprintf("polling %s  (q to quit)", addr)
	d.header.SetRect(0, 0, 80, 3)

	d.table.Title = "hub"
	d.table.TextStyle = ui.NewStyle(ui.ColorWhite)
	d.table.RowSeparator = false
	d.table.Rows = statsRows(model.HubStats{})
	d.table.SetRect(0, 3, 40, 14)

	d.rate.Data = []float64{0}
	d.rate.LineColor = ui.ColorGreen
	d.rate.Title = "published / tick"
	d.group = widgets.NewSparklineGroup(d.rate)
	d.group.Title = "ingest rate"
	d.group.SetRect(40, 3, 80, 14)

	d.bars.Title = "outcomes / tick"
	d.bars.Labels = []string{"accepted", "dropped", "evicted"}
	d.bars.BarWidth = 10
	d.bars.BarColors = []ui.Color{ui.ColorGreen, ui.ColorYellow, ui.ColorRed}
	d.bars.Data = []float64{0, 0, 0}
	d.bars.SetRect(0, 14, 80, 24)

	return d
}

func (d *dashboard) update(cur model.HubStats) {
	d.table.Rows = statsRows(cur)

	if d.hasPrev {
		s := diff(d.prev, cur)
		d.rate.Data = pushWindow(d.rate.Data, s.published, sparklineWidth)
		d.bars.Data = []float64{s.accepted, s.dropped, s.evicted}
	}
	d.prev, d.hasPrev = cur, true
}

func (d *dashboard) fail(err error) {
	d.header.Text = err.Error()
	d.header.TextStyle = ui.NewStyle(ui.ColorRed)
}

func (d *dashboard) ok(addr string) {
	d.header.Text = fmt.Sprintf("polling %s  (q to quit)", addr)
	d.header.TextStyle = ui.NewStyle(ui.ColorWhite)
}

func (d *dashboard) render() {
	ui.Render(d.header, d.table, d.group, d.bars)
}

func runTop(ctx context.Context, client *statsClient, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("top: init terminal: %w", err)
	}
	defer ui.Close()

	d := newDashboard(client.base)
	refresh := func() {
		stats, err := client.Fetch(ctx)
		if err != nil {
			d.fail(err)
		} else {
			d.ok(client.base)
			d.update(stats)
		}
		d.render()
	}
	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				d.render()
			}
		case <-ticker.C:
			refresh()
		}
	}
}
