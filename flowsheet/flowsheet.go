package flowsheet

import (
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"sxsim/stream"
)

const labelKey = "label"

// Flowsheet is the directed graph of units and the streams between them. Parallel
// streams between two units share one edge labelled with every stream number.
type Flowsheet struct {
	graph      graph.Graph[string, string]
	partitions map[string]int
	numbers    map[[2]string][]int
}

// Circuit is the layout of the simulated circuit, feed boundary first.
func Circuit() [][]string {
	return [][]string{{"In"}, {"PLSMixer"}, {"Extraction"}, {"Stripping"}, {"Out"}}
}

// New adds the units partition by partition, then one edge per origin and
// destination pair. Stream ends that name no unit become boundary vertices.
func New(partitions [][]string, streams []*stream.Stream) (*Flowsheet, error) {
	f := &Flowsheet{
		graph:      graph.New(graph.StringHash, graph.Directed()),
		partitions: make(map[string]int),
		numbers:    make(map[[2]string][]int),
	}

	for i, units := range partitions {
		fill, err := partitionColour(i)
		if err != nil {
			return nil, err
		}
		for _, name := range units {
			err := f.graph.AddVertex(name,
				graph.VertexAttribute("style", "filled"),
				graph.VertexAttribute("fillcolor", fill),
				graph.VertexAttribute("shape", "box"),
				graph.VertexAttribute("group", strconv.Itoa(i)),
			)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to add unit %s", name)
			}
			f.partitions[name] = i
		}
	}

	for _, s := range streams {
		if err := f.addStream(s); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Flowsheet) addStream(s *stream.Stream) error {
	for _, end := range []string{s.Origin, s.Destination} {
		if _, ok := f.partitions[end]; ok {
			continue
		}
		err := f.graph.AddVertex(end, graph.VertexAttribute("shape", "plaintext"))
		if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return errors.Wrapf(err, "unable to add boundary %s", end)
		}
	}

	key := [2]string{s.Origin, s.Destination}
	f.numbers[key] = append(f.numbers[key], s.Number)
	label := joinNumbers(f.numbers[key])

	if len(f.numbers[key]) == 1 {
		options := []func(*graph.EdgeProperties){graph.EdgeAttribute(labelKey, label)}
		if s.Recycle {
			options = append(options, graph.EdgeAttribute("style", "dashed"))
		}
		if err := f.graph.AddEdge(s.Origin, s.Destination, options...); err != nil {
			return errors.Wrapf(err, "unable to add stream %d from %s to %s", s.Number, s.Origin, s.Destination)
		}
		return nil
	}
	if err := f.graph.UpdateEdge(s.Origin, s.Destination, graph.EdgeAttribute(labelKey, label)); err != nil {
		return errors.Wrapf(err, "unable to merge stream %d into %s -> %s", s.Number, s.Origin, s.Destination)
	}
	return nil
}

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

const maxRGB = 240

// partitionColour spreads partitions from blue to red.
func partitionColour(i int) (string, error) {
	fraction := float64(i%6) / 5
	red := maxRGB * fraction
	blue := maxRGB - red
	c, err := colors.RGB(uint8(red), 180, uint8(blue)) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}
	return c.ToHEX().String(), nil
}

// Label is the stream numbers carried from origin to destination.
func (f *Flowsheet) Label(origin, destination string) (string, error) {
	edge, err := f.graph.Edge(origin, destination)
	if err != nil {
		return "", errors.Wrapf(err, "no stream from %s to %s", origin, destination)
	}
	return edge.Properties.Attributes[labelKey], nil
}

// Partition is the partition index of a unit; boundary vertices have none.
func (f *Flowsheet) Partition(unit string) (int, bool) {
	i, ok := f.partitions[unit]
	return i, ok
}

// Units lists every vertex name in sorted order.
func (f *Flowsheet) Units() ([]string, error) {
	adj, err := f.graph.AdjacencyMap()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get adjacency map")
	}
	res := make([]string, 0, len(adj))
	for name := range adj {
		res = append(res, name)
	}
	sort.Strings(res)
	return res, nil
}

func (f *Flowsheet) Graph() graph.Graph[string, string] {
	return f.graph
}

// WriteDOT renders the flowsheet in Graphviz DOT.
func (f *Flowsheet) WriteDOT(w io.Writer) error {
	err := draw.DOT(f.graph, w, draw.GraphAttribute("rankdir", "LR"))
	if err != nil {
		return errors.Wrap(err, "unable to render dot")
	}
	return nil
}

// Draw writes the DOT rendering to a file.
func (f *Flowsheet) Draw(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", path)
	}
	defer file.Close()
	return f.WriteDOT(file)
}
