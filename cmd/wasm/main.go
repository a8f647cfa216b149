//go:build js && wasm
// +build js,wasm

package main

import (
	"fmt"
	"strings"
	"syscall/js"

	"github.com/himanishpuri/museecg/pkg/logger"
	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/museecg/spectrum"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorDecode
	ErrorParse
)

var assembler = muse.NewAssembler(logger.GetLogger())

// museDecode decodes one WaveFormData blob.
// Returns: {error: number, data: Float64Array | string}
func museDecode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: base64 string, optional scale")
	}

	scale := waveform.DefaultScale
	if len(args) > 1 && !args[1].IsUndefined() && !args[1].IsNull() {
		if args[1].Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, "scale must be a number")
		}
		scale = args[1].Float()
	}

	series, err := waveform.Decode(args[0].String(), scale)
	if err != nil {
		return makeErrorResponse(ErrorDecode, err.Error())
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", toFloat64Array(series))
	return result
}

// museReadLeads decodes and derives the twelve leads of a MUSE XML document.
// Returns: {error: number, data: {sampleRate, leads: {I: {samples, summary}...}, issues} | string}
func museReadLeads(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 1 argument: XML document text")
	}

	doc, err := muse.ParseNamed(strings.NewReader(args[0].String()), "browser")
	if err != nil {
		return makeErrorResponse(ErrorParse, err.Error())
	}
	t := assembler.Assemble(doc)

	leads := js.Global().Get("Object").New()
	t.Leads.Each(func(lead waveform.Lead, s waveform.Series) {
		sum := spectrum.Summarize(lead, s, t.SampleRate)

		summary := js.Global().Get("Object").New()
		summary.Set("samples", sum.Samples)
		summary.Set("min", sum.Min)
		summary.Set("max", sum.Max)
		summary.Set("mean", sum.Mean)
		summary.Set("rms", sum.RMS)
		summary.Set("dominantHz", sum.DominantHz)

		entry := js.Global().Get("Object").New()
		entry.Set("samples", toFloat64Array(s))
		entry.Set("summary", summary)
		leads.Set(lead.String(), entry)
	})

	issues := js.Global().Get("Array").New()
	for i, issue := range t.Issues {
		issues.SetIndex(i, issue.Error())
	}

	data := js.Global().Get("Object").New()
	data.Set("sampleRate", t.SampleRate)
	data.Set("leads", leads)
	data.Set("issues", issues)

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func toFloat64Array(s waveform.Series) js.Value {
	arr := js.Global().Get("Float64Array").New(len(s))
	for i, v := range s {
		arr.SetIndex(i, v)
	}
	return arr
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")

	done := make(chan struct{})

	js.Global().Set("museDecode", js.FuncOf(museDecode))
	js.Global().Set("museReadLeads", js.FuncOf(museReadLeads))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	}

	if !console.IsUndefined() {
		console.Call("log", fmt.Sprintf("museecg WASM module ready (default scale %g uV/LSB)", waveform.DefaultScale))
	}

	<-done
}
