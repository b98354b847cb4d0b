// Package corefjson reads and writes documents and resolved clusters as JSON
// lines, one object per line.
package corefjson

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"evcoref/nlp/coref"
	"evcoref/nlp/types"
	"evcoref/util"
)

const (
	MAX_LINE = 64 * 1024 * 1024

	KIND_CLUSTER  = "cluster"
	KIND_RELATION = "relation"
)

// Namespace seeds the name-based cluster ids.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("evcoref/cluster"))

// Line is one output object: a cluster, or a relation between two mentions.
type Line struct {
	Kind     string   `json:"kind"`
	Doc      string   `json:"doc"`
	ID       string   `json:"id,omitempty"`
	Mentions []string `json:"mentions,omitempty"`
	Gov      string   `json:"gov,omitempty"`
	Dep      string   `json:"dep,omitempty"`
	Type     string   `json:"type,omitempty"`
}

func newScanner(reader io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), MAX_LINE)
	return scanner
}

func Read(reader io.Reader) ([]*types.Document, error) {
	var docs []*types.Document
	scanner := newScanner(reader)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		doc := &types.Document{}
		if err := json.Unmarshal([]byte(line), doc); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
		if doc.ID == "" {
			return nil, errors.Errorf("line %d: document without id", lineNum)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failure reading documents")
	}
	return docs, nil
}

func ReadFile(filename string) ([]*types.Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}

func Write(writer io.Writer, docs []*types.Document) error {
	encoder := json.NewEncoder(writer)
	for _, doc := range docs {
		if err := encoder.Encode(doc); err != nil {
			return errors.Wrapf(err, "document %s", doc.ID)
		}
	}
	return nil
}

func WriteFile(filename string, docs []*types.Document) error {
	return util.WriteFile(filename, func(w io.Writer) error {
		return Write(w, docs)
	})
}

// ClusterID derives a stable id from the document id and the cluster's
// mention ids, independent of their order.
func ClusterID(docID string, mentions []string) string {
	sorted := append([]string(nil), mentions...)
	sort.Strings(sorted)
	name := docID + "\x00" + strings.Join(sorted, "\x00")
	return uuid.NewSHA1(Namespace, []byte(name)).String()
}

// Lines flattens results into output lines, clusters before relations per
// document. Documents with no clusters or relations produce nothing.
func Lines(results []*coref.Result) []*Line {
	var lines []*Line
	for _, result := range results {
		if result == nil {
			continue
		}
		for _, cluster := range result.Clusters {
			if len(cluster) < 2 {
				continue
			}
			lines = append(lines, &Line{
				Kind:     KIND_CLUSTER,
				Doc:      result.DocID,
				ID:       ClusterID(result.DocID, cluster),
				Mentions: cluster,
			})
		}
		for _, rel := range result.Relations {
			lines = append(lines, &Line{
				Kind: KIND_RELATION,
				Doc:  result.DocID,
				Gov:  rel.Gov,
				Dep:  rel.Dep,
				Type: rel.Type.String(),
			})
		}
	}
	return lines
}

func WriteClusters(writer io.Writer, results []*coref.Result) error {
	encoder := json.NewEncoder(writer)
	for _, line := range Lines(results) {
		if err := encoder.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func WriteClustersFile(filename string, results []*coref.Result) error {
	return util.WriteFile(filename, func(w io.Writer) error {
		return WriteClusters(w, results)
	})
}

// ReadClusters reads the cluster lines of an output file, grouped by
// document. Other kinds of lines are skipped.
func ReadClusters(reader io.Reader) (map[string][][]string, error) {
	retval := make(map[string][][]string)
	scanner := newScanner(reader)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		line := &Line{}
		if err := json.Unmarshal([]byte(text), line); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
		if line.Kind != KIND_CLUSTER {
			continue
		}
		retval[line.Doc] = append(retval[line.Doc], line.Mentions)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failure reading clusters")
	}
	return retval, nil
}

func ReadClustersFile(filename string) (map[string][][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadClusters(file)
}
