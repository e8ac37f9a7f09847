// Package translator converts WebGL2 GLSL into the dialect the running
// context accepts, using the ANGLE-based goshadertranslator.
package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
	log "github.com/sirupsen/logrus"
)

var (
	translatorOnce sync.Once
	translator     *gst.ShaderTranslator
	translatorErr  error
)

// GetTranslator returns the process-wide translator, creating it on first use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	translatorOnce.Do(func() {
		translator, translatorErr = gst.NewShaderTranslator(context.Background())
		if translatorErr == nil {
			log.Debug("Shader translator initialized")
		}
	})
	if translatorErr != nil {
		return nil, fmt.Errorf("failed to create shader translator: %w", translatorErr)
	}
	return translator, nil
}

// Result is translated source plus the identifiers the translator assigned
// to each declared variable.
type Result struct {
	Code  string
	Names map[string]string
}

// Translate converts WebGL2 source for stage ("vertex" or "fragment") into
// ESSL when gles is set and GLSL 4.10 otherwise.
func Translate(source, stage string, gles bool) (*Result, error) {
	t, err := GetTranslator()
	if err != nil {
		return nil, err
	}
	outputFormat := gst.OutputFormatGLSL410
	if gles {
		outputFormat = gst.OutputFormatESSL
	}
	out, err := t.TranslateShader(source, stage, gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("%s shader translation failed: %w", stage, err)
	}
	names := make(map[string]string, len(out.Variables))
	for name, v := range out.Variables {
		names[name] = v.MappedName
	}
	return &Result{Code: out.Code, Names: names}, nil
}
