// Package proto turns protobuf service definitions into endpoints. Every
// unary RPC becomes a Connect-protocol POST whose JSON body is the input
// message.
package proto

import (
	"fmt"
	"path"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ParseText parses .proto source. Imports other than the well-known
// google/protobuf files cannot be resolved and fail the parse.
func ParseText(name string, data []byte) ([]*desc.FileDescriptor, error) {
	if name == "" || !strings.HasSuffix(name, ".proto") {
		name = "schema.proto"
	}
	parser := protoparse.Parser{
		Accessor:              protoparse.FileContentsFromMap(map[string]string{name: string(data)}),
		IncludeSourceCodeInfo: true,
	}
	files, err := parser.ParseFiles(name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse .proto file: %w", err)
	}
	return files, nil
}

// ParseSet decodes a serialized FileDescriptorSet, the format written by
// protoc --descriptor_set_out and by the reflection fetcher. Files come back
// in set order.
func ParseSet(data []byte) ([]*desc.FileDescriptor, error) {
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor set: %w", err)
	}
	byName, err := desc.CreateFileDescriptorsFromSet(&set)
	if err != nil {
		return nil, fmt.Errorf("failed to link descriptor set: %w", err)
	}
	files := make([]*desc.FileDescriptor, 0, len(set.GetFile()))
	for _, fd := range set.GetFile() {
		if f, ok := byName[fd.GetName()]; ok {
			files = append(files, f)
		}
	}
	return files, nil
}

// MarshalSet serializes files, with their dependencies first, as a
// FileDescriptorSet.
func MarshalSet(files []*desc.FileDescriptor) ([]byte, error) {
	var (
		set  descriptorpb.FileDescriptorSet
		seen = make(map[string]bool)
		add  func(f *desc.FileDescriptor)
	)
	add = func(f *desc.FileDescriptor) {
		if seen[f.GetName()] {
			return
		}
		seen[f.GetName()] = true
		for _, dep := range f.GetDependencies() {
			add(dep)
		}
		set.File = append(set.File, f.AsFileDescriptorProto())
	}
	for _, f := range files {
		add(f)
	}
	data, err := proto.Marshal(&set)
	if err != nil {
		return nil, fmt.Errorf("failed to encode descriptor set: %w", err)
	}
	return data, nil
}

func comment(loc *descriptorpb.SourceCodeInfo_Location) string {
	return strings.TrimSpace(loc.GetLeadingComments())
}

func fileName(origin string) string {
	if i := strings.LastIndexAny(origin, "/\\"); i >= 0 {
		origin = origin[i+1:]
	}
	return path.Clean(origin)
}
