package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/junker098/universe-app/internal/imageproc"
	"github.com/junker098/universe-app/internal/model"
)

// console serializes terminal output and owns the input reader so that the
// command loop and the deletion prompt never fight over buffered input.
type console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	previewPath string
	previewSize int
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out, previewSize: 1024}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// readLine returns io.EOF once input is exhausted.
func (c *console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a y/N question; anything but an explicit yes is a no.
func (c *console) confirm(question string) bool {
	c.printf("%s [y/N]: ", question)
	answer, err := c.readLine()
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *console) showEvent(ev model.Event) {
	switch ev.Kind {
	case model.EventPhotoReady:
		switch {
		case ev.Blank && ev.PhotoID == "":
			c.printf("no more photos to review\n")
		case ev.Blank:
			c.printf("photo: %s (no image available)\n", ev.PhotoID)
		default:
			c.printf("photo: %s\n", ev.PhotoID)
			c.writePreview(ev)
		}
	case model.EventTrashCount:
		c.printf("trash: %d\n", ev.Count)
	case model.EventError:
		c.printf("error: %s\n", ev.Message)
	}
}

// writePreview drops the current photo into a file an image viewer can watch.
func (c *console) writePreview(ev model.Event) {
	if c.previewPath == "" || ev.Image == nil {
		return
	}
	r, _, err := imageproc.Preview(ev.Image, c.previewSize, c.previewSize, imaging.JPEG)
	if err != nil {
		c.printf("error: %v\n", err)
		return
	}

	tmp := c.previewPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		c.printf("error: %v\n", err)
		return
	}
	_, err = io.Copy(f, r)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err == nil {
		err = os.Rename(tmp, c.previewPath)
	}
	if err != nil {
		c.printf("error: failed to write preview: %v\n", err)
	}
}
