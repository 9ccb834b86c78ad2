package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/yonatandev1/tsukuyomi/client"
	"github.com/yonatandev1/tsukuyomi/discord"
	"github.com/yonatandev1/tsukuyomi/state"
)

const banner = "\n" +
	"\x1b[37m\x1b[38;5;135m     .--'''''''''--.\n" +
	"\x1b[37m\x1b[38;5;135m   .'      .---.      '.\n" +
	"\x1b[37m\x1b[38;5;135m  /    .-----------.    \\\n" +
	"\x1b[37m\x1b[38;5;135m /        .-----.        \\\n" +
	"\x1b[37m\x1b[38;5;135m |       .-.   .-.       |\n" +
	"\x1b[37m\x1b[38;5;135m |      /   \\ /   \\      |" + "\x1b[37m" + "    Tsukuyomi\n" +
	"\x1b[37m\x1b[38;5;135m  \\    | .-. | .-. |    / " + "\x1b[37m" + "     %s\n" +
	"\x1b[37m\x1b[38;5;135m   '-._| | | | | | |_.-'\n" +
	"\x1b[37m\x1b[38;5;135m       | '-' | '-' |\n" +
	"\x1b[37m\x1b[38;5;135m        \\___/ \\___/\n" +
	"\x1b[37m\x1b[38;5;135m     _.-'  /   \\  `-._\n" +
	"\x1b[37m\x1b[38;5;135m   .' _.--|     |--._ '.\n" +
	"\x1b[37m\x1b[38;5;135m   ' _...-|     |-..._ '\n" +
	"\x1b[37m\x1b[38;5;135m          |     |\x1b[37m\n"

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// formatNumber groups digits by thousands: 1234567 -> 1,234,567.
func formatNumber(number int64) string {
	in := strconv.FormatInt(number, 10)
	out := make([]byte, len(in)+(len(in)-2+int(in[0]/'0'))/3)

	if in[0] == '-' {
		in, out[0] = in[1:], '-'
	}

	for i, j, k := len(in)-1, len(out)-1, 0; ; i, j = i-1, j-1 {
		out[j] = in[i]

		if i == 0 {
			return string(out)
		}

		if k++; k == 3 {
			j, k = j-1, 0
			out[j] = ','
		}
	}
}

func highlight(s string) string {
	return "\x1b[37m\x1b[38;5;135m" + s + "\x1b[37m"
}

// cacheSize counts the cached entities of each kind.
type cacheSize struct {
	guilds, channels, users, messages int
}

func measure(s *state.Cache) cacheSize {
	size := cacheSize{
		guilds:   s.Guilds.Len(),
		channels: s.Channels.Len(),
		users:    s.Users.Len(),
	}
	s.Channels.Each(func(_ discord.Snowflake, ch *discord.Channel) bool {
		if ch.Messages != nil {
			size.messages += ch.Messages.Len()
		}
		return true
	})
	return size
}

// statusLine renders the one-line cache summary of the status spinner.
func statusLine(spinner string, c *client.Client, size cacheSize, memory *runtime.MemStats) string {
	return fmt.Sprintf("[%s] %s | %s Guilds | %s Channels | %s Users | %s Messages | %s Ping | %s MB",
		highlight(spinner),
		c.Gateway.State(),
		highlight(formatNumber(int64(size.guilds))),
		highlight(formatNumber(int64(size.channels))),
		highlight(formatNumber(int64(size.users))),
		highlight(formatNumber(int64(size.messages))),
		highlight(c.Gateway.Ping().Round(time.Millisecond).String()),
		highlight(formatNumber(int64(bToMb(memory.Alloc)))),
	)
}

func printStatus(ctx context.Context, w io.Writer, c *client.Client) {
	var memory runtime.MemStats

	for {
		for _, spinner := range []string{"/", "-", "\\", "|"} {
			var size cacheSize
			if err := c.View(ctx, func(s *state.Cache) { size = measure(s) }); err != nil {
				fmt.Fprintln(w)
				return
			}

			runtime.ReadMemStats(&memory)
			fmt.Fprintf(w, "%s%s\r", statusLine(spinner, c, size, &memory), strings.Repeat(" ", 25))

			select {
			case <-ctx.Done():
				fmt.Fprintln(w)
				return
			case <-time.After(150 * time.Millisecond):
			}
		}
	}
}
