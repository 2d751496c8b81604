package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/ddsbox/pkg/l0/comm"
	"github.com/robotalks/ddsbox/pkg/l1"
	env "github.com/robotalks/ddsbox/pkg/l1/env/connector"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is an open box link with a running client.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	Name   string
	Link   l1.Link
	Client *comm.Client
}

// Result is the JSON form of a command reply.
type Result struct {
	Command string   `json:"command"`
	Lines   []string `json:"lines"`
	Error   string   `json:"error,omitempty"`
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints BoxInfo into friendly string for display.
func FormatInfo(info l1.BoxInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	if info.Meta.Slots > 0 {
		fmt.Fprintf(&w, " (%d slots)", info.Meta.Slots)
	}
	return w.String()
}

// Do sends a command and waits for the reply. Errors are reported
// to the console.
func Do(c *ishell.Context, cmd string) (*comm.Reply, error) {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return nil, err
	}
	reply, err := s.Conn.Client.Do(s.Conn.Ctx, cmd)
	if err != nil && !s.OutputJSON {
		if reply != nil {
			PrintLines(c, reply.Lines)
		}
		c.Err(err)
	}
	return reply, err
}

// DoCommand runs a command and prints the reply.
func DoCommand(c *ishell.Context, cmd string) error {
	reply, err := Do(c, cmd)
	s := ShellFrom(c)
	if s.OutputJSON {
		PrintJSON(c, NewResult(cmd, reply, err))
		return err
	}
	if err == nil {
		PrintLines(c, reply.Lines)
	}
	return err
}

// NewResult creates Result from a reply.
func NewResult(cmd string, reply *comm.Reply, err error) *Result {
	res := &Result{Command: strings.TrimRight(cmd, "\n"), Lines: []string{}}
	if reply != nil && reply.Lines != nil {
		res.Lines = reply.Lines
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// PrintLines prints reply lines.
func PrintLines(c *ishell.Context, lines []string) {
	for _, line := range lines {
		c.Println(line)
	}
}

// PrintJSON prints v in JSON.
func PrintJSON(c *ishell.Context, v interface{}) {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverBoxes discovers boxes.
func (s *Shell) DiscoverBoxes(filter func(l1.BoxInfo) bool) ([]l1.BoxInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	infoList, err := connector.Discover(context.TODO())
	if err != nil {
		return nil, err
	}
	if filter != nil {
		items := make([]l1.BoxInfo, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return infoList, nil
}

// SelectBox discovers boxes and asks for a choice.
func (s *Shell) SelectBox(filter func(l1.BoxInfo) bool) (*l1.BoxInfo, error) {
	infoList, err := s.DiscoverBoxes(filter)
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 boxes discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect connects the box using conf.
func (s *Shell) Connect(conf *env.Config) error {
	conn := &Conn{Name: conf.Target()}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	link, err := conf.Connect(conn.Ctx)
	if err != nil {
		conn.Cancel()
		return err
	}
	conn.Link = link
	conn.Client = comm.NewClient(link)
	go func() {
		if err := conn.Client.Run(conn.Ctx); err != nil && err != context.Canceled {
			glog.Warningf("%s: %v", conn.Name, err)
		}
	}()
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", conn.Name))
	return nil
}

// ConnectRef connects a registered box.
func (s *Shell) ConnectRef(ref l1.BoxRef) error {
	conf := *s.Config
	conf.Ref, conf.LinkURL = ref, ""
	return s.Connect(&conf)
}

// ConnectURL connects a box link directly.
func (s *Shell) ConnectURL(linkURL string) error {
	conf := *s.Config
	conf.LinkURL = linkURL
	return s.Connect(&conf)
}

// Disconnect disconnects current box.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.CanConnect() {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Target())
		}
		if err := s.Connect(s.Config); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Target(), err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd discovers boxes.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverBoxes(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []l1.BoxInfo{}
				}
				PrintJSON(c, infoList)
				return
			}
			if len(infoList) == 0 {
				c.Println("No boxes found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a box.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "TYPE ID | LINK-URL",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var err error
			switch {
			case len(c.Args) >= 2:
				err = s.ConnectRef(l1.BoxRef{Type: c.Args[0], ID: c.Args[1]})
			case len(c.Args) == 1 && strings.Contains(c.Args[0], "://"):
				err = s.ConnectURL(c.Args[0])
			default:
				var filter func(l1.BoxInfo) bool
				if len(c.Args) == 1 {
					filter = func(info l1.BoxInfo) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				var info *l1.BoxInfo
				if info, err = s.SelectBox(filter); err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no box discovered"))
					return
				}
				err = s.ConnectRef(info.Ref)
			}
			if err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current box.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
