package cli

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"blinkpage/itemptr"
	"blinkpage/node"
	"blinkpage/nodestore"

	"github.com/fatih/color"
)

type Cli struct {
	scanner *bufio.Scanner
	store   *nodestore.Store[uint32]
	order   uint32
	out     io.Writer

	okColor   *color.Color
	errColor  *color.Color
	keyColor  *color.Color
	linkColor *color.Color
}

func NewCli(s *bufio.Scanner, store *nodestore.Store[uint32], order uint32, out io.Writer) *Cli {
	return &Cli{
		scanner:   s,
		store:     store,
		order:     order,
		out:       out,
		okColor:   color.New(color.FgGreen),
		errColor:  color.New(color.FgRed, color.Bold),
		keyColor:  color.New(color.FgCyan),
		linkColor: color.New(color.FgYellow),
	}
}

// Start reads commands until EXIT or end of input.
func (c *Cli) Start() {
	c.printHelp()
	c.printPrompt()
	for c.scanner.Scan() {
		if !c.processInput(c.scanner.Text()) {
			return
		}
		c.printPrompt()
	}
}

func (c *Cli) printHelp() {
	fmt.Fprint(c.out, `
B-Link Page CLI

Available Commands:
  PUT <page> <k1,k2,..> [p1:o1,p2:o2,..]  Store a leaf node with sorted keys and value pointers
  PROMOTE <page> <p1:o1,p2:o2,..>         Turn the node into an internal node with these children
  PTRS <page> <p1:o1,p2:o2,..>            Replace the node's value or child pointers
  LINK <page> <sibling>                   Point the node's right link at sibling (-1 for none)
  GET <page>                              Decode and print the node stored in page
  DUMP <page>                             Hex dump of the raw page
  HELP                                    Show this message
  EXIT                                    Terminate this session
`)
}

func (c *Cli) printPrompt() {
	fmt.Fprint(c.out, "> ")
}

func (c *Cli) fail(format string, a ...any) {
	c.errColor.Fprintf(c.out, format+"\n", a...)
}

// processInput returns false when the session should end.
func (c *Cli) processInput(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return true
	}
	command := strings.ToLower(fields[0])
	switch command {
	default:
		c.fail("Unknown command \"%s\"", command)
	case "put":
		c.processPutCommand(fields[1:])
	case "promote":
		c.processPromoteCommand(fields[1:])
	case "ptrs":
		c.processPtrsCommand(fields[1:])
	case "link":
		c.processLinkCommand(fields[1:])
	case "get":
		c.processGetCommand(fields[1:])
	case "dump":
		c.processDumpCommand(fields[1:])
	case "help":
		c.printHelp()
	case "exit":
		return false
	}
	return true
}

func (c *Cli) processPutCommand(args []string) {
	if len(args) < 2 || len(args) > 3 {
		c.fail("Usage: PUT <page> <k1,k2,..> [p1:o1,p2:o2,..]")
		return
	}
	page, err := parsePage(args[0])
	if err != nil {
		c.fail("%v", err)
		return
	}
	keys, err := parseKeys(args[1])
	if err != nil {
		c.fail("%v", err)
		return
	}
	var values []itemptr.ItemPtr
	if len(args) == 3 {
		if values, err = parsePtrs(args[2]); err != nil {
			c.fail("%v", err)
			return
		}
	}
	link := itemptr.Null()
	// keep an existing sibling link when a page is rewritten
	if old, err := c.store.Get(page); err == nil {
		link = old.Link()
	}
	n, err := node.New[uint32](c.order, itemptr.New(page, 0), link, keys, values)
	if err != nil {
		c.fail("%v", err)
		return
	}
	if err := c.store.Put(n); err != nil {
		c.fail("%v", err)
		return
	}
	c.printNode(n)
}

func (c *Cli) processPromoteCommand(args []string) {
	if len(args) != 2 {
		c.fail("Usage: PROMOTE <page> <p1:o1,p2:o2,..>")
		return
	}
	n, ok := c.load(args[0])
	if !ok {
		return
	}
	children, err := parsePtrs(args[1])
	if err != nil {
		c.fail("%v", err)
		return
	}
	c.save(n.Promote(children))
}

func (c *Cli) processPtrsCommand(args []string) {
	if len(args) != 2 {
		c.fail("Usage: PTRS <page> <p1:o1,p2:o2,..>")
		return
	}
	n, ok := c.load(args[0])
	if !ok {
		return
	}
	ptrs, err := parsePtrs(args[1])
	if err != nil {
		c.fail("%v", err)
		return
	}
	n.SetPtrs(ptrs)
	c.save(n)
}

func (c *Cli) processLinkCommand(args []string) {
	if len(args) != 2 {
		c.fail("Usage: LINK <page> <sibling>")
		return
	}
	n, ok := c.load(args[0])
	if !ok {
		return
	}
	sibling, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		c.fail("bad sibling page %q", args[1])
		return
	}
	n.SetLink(itemptr.New(int32(sibling), 0))
	c.save(n)
}

func (c *Cli) processGetCommand(args []string) {
	if len(args) != 1 {
		c.fail("Usage: GET <page>")
		return
	}
	if n, ok := c.load(args[0]); ok {
		c.printNode(n)
	}
}

func (c *Cli) processDumpCommand(args []string) {
	if len(args) != 1 {
		c.fail("Usage: DUMP <page>")
		return
	}
	page, err := parsePage(args[0])
	if err != nil {
		c.fail("%v", err)
		return
	}
	raw, err := c.store.Raw(page)
	if err != nil {
		c.fail("%v", err)
		return
	}
	fmt.Fprint(c.out, hex.Dump(raw))
}

func (c *Cli) load(arg string) (*node.Node[uint32], bool) {
	page, err := parsePage(arg)
	if err != nil {
		c.fail("%v", err)
		return nil, false
	}
	n, err := c.store.Get(page)
	if err != nil {
		c.fail("%v", err)
		return nil, false
	}
	return n, true
}

func (c *Cli) save(n *node.Node[uint32]) {
	if err := c.store.Put(n); err != nil {
		c.fail("%v", err)
		return
	}
	c.printNode(n)
}

func (c *Cli) printNode(n *node.Node[uint32]) {
	c.okColor.Fprintf(c.out, "%s node at %s (order %d)\n", n.Kind(), n.Loc(), n.Order())
	c.keyColor.Fprintf(c.out, "  keys:     %v\n", n.Keys())
	c.keyColor.Fprintf(c.out, "  high key: %d\n", n.HighKey())
	c.linkColor.Fprintf(c.out, "  link:     %s\n", n.Link())
	for i, p := range n.Ptrs() {
		fmt.Fprintf(c.out, "  ptr[%d]:   %s\n", i, p)
	}
	fmt.Fprintf(c.out, "  encoded:  %d of %d bytes\n", n.EncodedSize(), c.store.Codec().PageSize())
	fmt.Fprintf(c.out, "  capacity: %d keys\n", c.store.Codec().Capacity(n.Kind()))
}

func parsePage(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("bad page number %q", s)
	}
	return int32(v), nil
}

func parseKeys(s string) ([]uint32, error) {
	parts := strings.Split(s, ",")
	keys := make([]uint32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad key %q", p)
		}
		keys = append(keys, uint32(v))
	}
	return keys, nil
}

// "7:16,8:0" -> [ItemPtr{7,16} ItemPtr{8,0}]
func parsePtrs(s string) ([]itemptr.ItemPtr, error) {
	var ptrs []itemptr.ItemPtr
	for _, p := range strings.Split(s, ",") {
		pageStr, offStr, found := strings.Cut(p, ":")
		if !found {
			offStr = "0"
		}
		page, err := strconv.ParseInt(pageStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad pointer %q", p)
		}
		off, err := strconv.ParseUint(offStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad pointer %q", p)
		}
		ptrs = append(ptrs, itemptr.New(int32(page), uint32(off)))
	}
	return ptrs, nil
}
