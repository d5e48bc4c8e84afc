// Package embeddings turns perception records into vectors for the memory
// tiers.
//
// Two providers are available: FastEmbed runs ONNX models in-process and
// needs a cgo build with the ONNX runtime on ONNX_PATH; TEI calls a Text
// Embeddings Inference server over HTTP. NewProvider selects one from
// configuration.
package embeddings
