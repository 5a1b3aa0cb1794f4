// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/researchgraph/core"
)

// The record schema is small enough that the serializers are written by
// hand against mus-go primitives. Field order is part of the on-disk
// format; append new fields, never reorder.
var (
	// IDMUS serializes core.ID values.
	IDMUS = idMUS{}

	// CatalogItemMUS serializes catalog item records.
	CatalogItemMUS = catalogItemMUS{}

	// SimilarityEdgeMUS serializes similarity edge records.
	SimilarityEdgeMUS = similarityEdgeMUS{}

	stringsMUS = ord.NewSliceSer[string](ord.String)
	vectorMUS  = ord.NewSliceSer[float32](raw.Float32)
)

var (
	_ mus.Serializer[core.ID]             = IDMUS
	_ mus.Serializer[core.CatalogItem]    = CatalogItemMUS
	_ mus.Serializer[core.SimilarityEdge] = SimilarityEdgeMUS
)

type idMUS struct{}

func (idMUS) Marshal(v core.ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (core.ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idMUS) Size(v core.ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type catalogItemMUS struct{}

func (s catalogItemMUS) Marshal(v core.CatalogItem, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.SourceURL, bs[n:])
	n += ord.String.Marshal(v.RawExcerpt, bs[n:])
	n += ord.String.Marshal(v.Analysis.Summary, bs[n:])
	n += stringsMUS.Marshal(v.Analysis.Tags, bs[n:])
	n += stringsMUS.Marshal(v.Analysis.QuestionsAnswered, bs[n:])
	n += stringsMUS.Marshal(v.Analysis.KeyFindings, bs[n:])
	n += raw.Float64.Marshal(v.Analysis.RelevancyScore, bs[n:])
	n += raw.Float64.Marshal(v.Analysis.InterestingScore, bs[n:])
	n += vectorMUS.Marshal(v.Embedding, bs[n:])
	n += varint.Int64.Marshal(v.IngestedAt.UnixMicro(), bs[n:])
	n += varint.Uint64.Marshal(v.Revision, bs[n:])
	return
}

func (s catalogItemMUS) Unmarshal(bs []byte) (v core.CatalogItem, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var kind int
	kind, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Kind = core.ItemKind(kind)
	v.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceURL, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.RawExcerpt, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Analysis.Summary, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Analysis.Tags, n1, err = stringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Analysis.QuestionsAnswered, n1, err = stringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Analysis.KeyFindings, n1, err = stringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Analysis.RelevancyScore, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Analysis.InterestingScore, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Embedding, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IngestedAt = time.UnixMicro(micros).UTC()
	v.Revision, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	return
}

func (s catalogItemMUS) Size(v core.CatalogItem) (size int) {
	size = IDMUS.Size(v.Id)
	size += varint.Int.Size(int(v.Kind))
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.SourceURL)
	size += ord.String.Size(v.RawExcerpt)
	size += ord.String.Size(v.Analysis.Summary)
	size += stringsMUS.Size(v.Analysis.Tags)
	size += stringsMUS.Size(v.Analysis.QuestionsAnswered)
	size += stringsMUS.Size(v.Analysis.KeyFindings)
	size += raw.Float64.Size(v.Analysis.RelevancyScore)
	size += raw.Float64.Size(v.Analysis.InterestingScore)
	size += vectorMUS.Size(v.Embedding)
	size += varint.Int64.Size(v.IngestedAt.UnixMicro())
	size += varint.Uint64.Size(v.Revision)
	return
}

func (s catalogItemMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type similarityEdgeMUS struct{}

func (s similarityEdgeMUS) Marshal(v core.SimilarityEdge, bs []byte) (n int) {
	n = IDMUS.Marshal(v.A, bs)
	n += IDMUS.Marshal(v.B, bs[n:])
	n += raw.Float64.Marshal(v.Weight, bs[n:])
	n += varint.Int.Marshal(int(v.Method), bs[n:])
	return
}

func (s similarityEdgeMUS) Unmarshal(bs []byte) (v core.SimilarityEdge, n int, err error) {
	var n1 int
	v.A, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.B, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Weight, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var method int
	method, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	v.Method = core.SimilarityMethod(method)
	return
}

func (s similarityEdgeMUS) Size(v core.SimilarityEdge) (size int) {
	size = IDMUS.Size(v.A)
	size += IDMUS.Size(v.B)
	size += raw.Float64.Size(v.Weight)
	size += varint.Int.Size(int(v.Method))
	return
}

func (s similarityEdgeMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, IDMUS.Size(id))
	IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := IDMUS.Unmarshal(data)
	return id, err
}

// MarshalCatalogItem serializes a CatalogItem to bytes.
func MarshalCatalogItem(item *core.CatalogItem) []byte {
	buf := make([]byte, CatalogItemMUS.Size(*item))
	CatalogItemMUS.Marshal(*item, buf)
	return buf
}

// UnmarshalCatalogItem deserializes a CatalogItem from bytes.
func UnmarshalCatalogItem(data []byte) (*core.CatalogItem, error) {
	item, _, err := CatalogItemMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MarshalSimilarityEdge serializes a SimilarityEdge to bytes.
func MarshalSimilarityEdge(edge *core.SimilarityEdge) []byte {
	buf := make([]byte, SimilarityEdgeMUS.Size(*edge))
	SimilarityEdgeMUS.Marshal(*edge, buf)
	return buf
}

// UnmarshalSimilarityEdge deserializes a SimilarityEdge from bytes.
func UnmarshalSimilarityEdge(data []byte) (*core.SimilarityEdge, error) {
	edge, _, err := SimilarityEdgeMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &edge, nil
}
