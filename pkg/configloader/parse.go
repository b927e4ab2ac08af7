package configloader

import (
	"io"
	"os"
	"strings"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"gopkg.in/yaml.v3"
)

var actionKinds = map[string]schema.ActionKind{
	"build":  schema.KindBuild,
	"deploy": schema.KindDeploy,
	"run":    schema.KindRun,
	"test":   schema.KindTest,
}

// ParseFile decodes every "---"-separated document in path into a
// schema.Document, sniffing its kind from the top-level "kind" field.
func ParseFile(path string) ([]*schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "opening %s", path), gerrors.ErrConfiguration)).Err()
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	var docs []*schema.Document
	for i := 0; ; i++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "parsing %s (document %d)", path, i), gerrors.ErrConfiguration)).Err()
		}
		tree, err := schema.DecodeOrdered(&node)
		if err != nil {
			return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "decoding %s (document %d)", path, i), gerrors.ErrConfiguration)).Err()
		}
		if tree == nil {
			continue // blank document between "---" separators
		}
		om, isMap := tree.(*schema.OrderedMap)
		if !isMap {
			return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s (document %d): top-level value must be a mapping", path, i), gerrors.ErrConfiguration)).Err()
		}
		doc, err := classify(om, path, i)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func classify(om *schema.OrderedMap, path string, idx int) (*schema.Document, error) {
	kindRaw, has := om.Get("kind")
	if !has {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s (document %d): missing required \"kind\" field", path, idx), gerrors.ErrConfiguration)).Err()
	}
	kindStr, isStr := kindRaw.(string)
	if !isStr {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s (document %d): \"kind\" must be a string", path, idx), gerrors.ErrConfiguration)).Err()
	}

	doc := &schema.Document{SourceFile: path, DocIndex: idx, Body: om}

	lower := strings.ToLower(kindStr)
	if ak, isAction := actionKinds[lower]; isAction {
		doc.Kind = schema.DocAction
		doc.ActionKind = ak
		return doc, nil
	}

	switch schema.DocumentKind(kindStr) {
	case schema.DocProject, schema.DocEnvironment, schema.DocProvider, schema.DocWorkflow,
		schema.DocCommand, schema.DocConfigTemplate, schema.DocRenderTemplate, schema.DocModule:
		doc.Kind = schema.DocumentKind(kindStr)
		return doc, nil
	}

	return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s (document %d): unknown document kind %q", path, idx, kindStr), gerrors.ErrConfiguration)).Err()
}

// ParseAll parses every file in paths, in order, returning all documents
// concatenated.
func ParseAll(paths []string) ([]*schema.Document, error) {
	var all []*schema.Document
	for _, p := range paths {
		docs, err := ParseFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, docs...)
	}
	return all, nil
}
