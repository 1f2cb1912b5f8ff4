// alarmctl is the command line client for the alarmd HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli"
)

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func main() {
	app := cli.NewApp()
	app.Name = "alarmctl"
	app.Usage = "manage alarms on a running alarmd"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "server, s",
			Usage:  "alarmd base URL",
			EnvVar: "ALARMD_SERVER",
			Value:  "http://localhost:8080",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list",
			Usage:  "list all alarms",
			Action: cmdList,
		},
		{
			Name:      "add",
			Usage:     "create an alarm",
			ArgsUsage: "HH:MM",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "name, n", Usage: "alarm name"},
				cli.StringFlag{Name: "days, d", Usage: "repeat days, comma separated 0-6 (empty = one-shot)"},
				cli.StringFlag{Name: "category, c", Usage: "alarm category"},
				cli.BoolFlag{Name: "disabled", Usage: "create the alarm disabled"},
			},
			Action: cmdAdd,
		},
		{
			Name:      "rm",
			Usage:     "delete an alarm",
			ArgsUsage: "ID",
			Action:    cmdRemove,
		},
		{
			Name:      "toggle",
			Usage:     "enable or disable an alarm",
			ArgsUsage: "ID",
			Action:    cmdToggle,
		},
		{
			Name:      "audio",
			Usage:     "attach an audio file to an alarm",
			ArgsUsage: "ID FILE",
			Action:    cmdAudio,
		},
		{
			Name:   "ring",
			Usage:  "show the current ringing state",
			Action: cmdRing,
		},
		{
			Name:   "dismiss",
			Usage:  "dismiss the ringing alarm",
			Action: cmdDismiss,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "alarmctl:", err)
		os.Exit(1)
	}
}

type alarm struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Time     string `json:"time"`
	Days     []int  `json:"days"`
	Enabled  bool   `json:"enabled"`
	Category string `json:"category,omitempty"`
	AudioKey string `json:"audio_key,omitempty"`
}

func cmdList(c *cli.Context) error {
	var resp struct {
		Alarms []alarm `json:"alarms"`
	}
	if err := call(c, http.MethodGet, "/v1/alarms", nil, &resp); err != nil {
		return err
	}
	if len(resp.Alarms) == 0 {
		fmt.Println("no alarms")
		return nil
	}
	for _, a := range resp.Alarms {
		state := "off"
		if a.Enabled {
			state = "on"
		}
		audio := ""
		if a.AudioKey != "" {
			audio = " [audio]"
		}
		fmt.Printf("%s  %s  %-4s %-20s %s%s\n", a.ID, a.Time, state, a.Name, formatDays(a.Days), audio)
	}
	return nil
}

func cmdAdd(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: alarmctl add [flags] HH:MM")
	}
	days, err := parseDays(c.String("days"))
	if err != nil {
		return err
	}
	body := map[string]any{
		"time":     c.Args().First(),
		"name":     c.String("name"),
		"days":     days,
		"category": c.String("category"),
		"enabled":  !c.Bool("disabled"),
	}
	var created alarm
	if err := call(c, http.MethodPost, "/v1/alarms", body, &created); err != nil {
		return err
	}
	fmt.Println("created", created.ID)
	return nil
}

func cmdRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: alarmctl rm ID")
	}
	return call(c, http.MethodDelete, "/v1/alarms/"+c.Args().First(), nil, nil)
}

func cmdToggle(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: alarmctl toggle ID")
	}
	var toggled alarm
	if err := call(c, http.MethodPost, "/v1/alarms/"+c.Args().First()+"/toggle", nil, &toggled); err != nil {
		return err
	}
	if toggled.Enabled {
		fmt.Println("enabled")
	} else {
		fmt.Println("disabled")
	}
	return nil
}

func cmdAudio(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: alarmctl audio ID FILE")
	}
	id, path := c.Args().Get(0), c.Args().Get(1)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPut,
		c.GlobalString("server")+"/v1/alarms/"+id+"/audio", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentTypeFor(path))
	req.Header.Set("X-Audio-Name", filepath.Base(path))
	resp, err := httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	fmt.Println("audio attached to", id)
	return nil
}

func cmdRing(c *cli.Context) error {
	var status struct {
		Ringing bool   `json:"ringing"`
		Alarm   *alarm `json:"alarm"`
	}
	if err := call(c, http.MethodGet, "/v1/ring", nil, &status); err != nil {
		return err
	}
	if !status.Ringing {
		fmt.Println("quiet")
		return nil
	}
	fmt.Printf("ringing: %s (%s %s)\n", status.Alarm.Name, status.Alarm.ID, status.Alarm.Time)
	return nil
}

func cmdDismiss(c *cli.Context) error {
	if err := call(c, http.MethodPost, "/v1/ring/dismiss", nil, nil); err != nil {
		return err
	}
	fmt.Println("dismissed")
	return nil
}

func call(c *cli.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.GlobalString("server")+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func parseDays(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid day %q, want 0-6", p)
		}
		days = append(days, d)
	}
	return days, nil
}

func formatDays(days []int) string {
	if len(days) == 0 {
		return "once"
	}
	names := make([]string, len(days))
	for i, d := range days {
		if d >= 0 && d < len(dayNames) {
			names[i] = dayNames[d]
		}
	}
	return strings.Join(names, ",")
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(path, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(path, ".ogg"):
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
