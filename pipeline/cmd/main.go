package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gcs "cloud.google.com/go/storage"
	vision "cloud.google.com/go/vision/v2/apiv1"
	"github.com/alexflint/go-arg"
	"github.com/google/generative-ai-go/genai"
	"github.com/ridge/must/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/phototrans-project/phototrans/pipeline/impl"
	"github.com/phototrans-project/phototrans/pipeline/impl/font"
	"github.com/phototrans-project/phototrans/pipeline/impl/ocr"
	"github.com/phototrans-project/phototrans/pipeline/impl/storage"
	"github.com/phototrans-project/phototrans/pipeline/impl/translate"
	"github.com/phototrans-project/phototrans/pkg/env"
)

var args struct {
	Input  string `arg:"positional,required" help:"source image, local path or gs://bucket/object"`
	Output string `arg:"positional,required" help:"translated image, format chosen by extension"`

	From string `arg:"--from" default:"auto" help:"language of the text in the image"`
	To   string `arg:"--to,required" help:"language to translate into, e.g. uk"`

	OCR          string   `arg:"--ocr" default:"vision" help:"vision, documentai, tesseract or json"`
	OCRJSON      string   `arg:"--ocr-json" help:"EasyOCR-style detections, used with --ocr=json"`
	OCRLanguages []string `arg:"--ocr-language,separate" help:"language hint for the OCR engine, repeatable"`

	Translator    string        `arg:"--translator" default:"openai" help:"openai, gemini or none"`
	Model         string        `arg:"--model" help:"translation model, defaults per translator"`
	Concurrency   int           `arg:"-j,--concurrency" help:"paragraphs translated at once [env: TRANSLATE_CONCURRENCY]"`
	Timeout       time.Duration `arg:"--timeout" help:"deadline of a single translation call [env: TRANSLATE_TIMEOUT]"`
	Retries       uint64        `arg:"--retries" default:"2"`
	RetryInterval time.Duration `arg:"--retry-interval" help:"[env: TRANSLATE_RETRY_INTERVAL]"`

	FontDir     string `arg:"--font-dir" help:"directory with <Language>/SansSerif-Regular.ttf fonts"`
	ReadableInk bool   `arg:"--readable-ink" help:"avoid ink colors close to the background"`
	DebugBoxes  bool   `arg:"--debug-boxes" help:"also write numbered paragraph boxes next to the output"`
	Verbose     bool   `arg:"-v,--verbose"`
}

var log = logrus.New()

func main() {
	env.Load()
	// Values set before parsing act as flag defaults.
	args.Concurrency = env.IntVariable("TRANSLATE_CONCURRENCY", 1)
	args.Timeout = env.DurationVariable("TRANSLATE_TIMEOUT", impl.DEFAULT_TRANSLATE_TIMEOUT)
	args.RetryInterval = env.DurationVariable("TRANSLATE_RETRY_INTERVAL", time.Second/2)
	arg.MustParse(&args)
	if args.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()

	targetLanguage, err := translate.ParseLanguage(args.To)
	if err != nil {
		log.Fatalf("Failed to parse target language: %v", err)
	}
	fonts, err := font.ForLanguage(args.FontDir, targetLanguage)
	if err != nil {
		log.Fatalf("Failed to load font: %v", err)
	}

	detector, closeDetector := newDetector(ctx)
	defer closeDetector()

	translator, closeTranslator := newTranslator(ctx)
	defer closeTranslator()

	var storageClient storage.Client
	if strings.HasPrefix(args.Input, storage.GCS_SCHEME) || strings.HasPrefix(args.Output, storage.GCS_SCHEME) {
		gcsClient := must.OK1(gcs.NewClient(ctx))
		defer gcsClient.Close()
		storageClient = storage.New(gcsClient)
	}

	pipeline := impl.New(detector, translator, fonts, storage.NewSink(storageClient), impl.Options{
		Thresholds:           impl.ThresholdsFromEnv(),
		TranslateConcurrency: args.Concurrency,
		TranslateTimeout:     args.Timeout,
		ReadableInk:          args.ReadableInk,
		Logger:               log,
	})

	result, err := pipeline.TranslateFile(ctx, args.Input, args.Output, impl.Request{
		Source:       args.From,
		Target:       args.To,
		DebugOverlay: args.DebugBoxes,
	})
	if err != nil {
		log.Fatalf("Failed to translate %s: %v", args.Input, err)
	}
	log.WithFields(logrus.Fields{
		"paragraphs": len(result.Paragraphs),
		"output":     args.Output,
	}).Info("Done")
}

func newDetector(ctx context.Context) (ocr.Detector, func()) {
	switch args.OCR {
	case "vision":
		visionClient := must.OK1(vision.NewImageAnnotatorClient(ctx))
		return ocr.NewVision(visionClient, args.OCRLanguages...), func() { visionClient.Close() }
	case "documentai":
		documentaiClient := must.OK1(documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(env.StringVariable("DOCUMENTAI_ENDPOINT", "us-documentai.googleapis.com:443"))))
		spec := ocr.DocumentaiSpec{
			ProjectID:   env.RequiredStringVariable("GCP_PROJECT_ID"),
			Location:    env.RequiredStringVariable("DOCUMENTAI_LOCATION"),
			ProcessorID: env.RequiredStringVariable("DOCUMENTAI_PROCESSOR_ID"),
		}
		return ocr.NewDocumentAI(documentaiClient, spec), func() { documentaiClient.Close() }
	case "tesseract":
		return must.OK1(ocr.NewTesseract(args.OCRLanguages...)), func() {}
	case "json":
		if args.OCRJSON == "" {
			log.Fatal("--ocr-json is required with --ocr=json")
		}
		return ocr.NewJSONFile(args.OCRJSON), func() {}
	default:
		log.Fatalf("Unknown OCR backend %q", args.OCR)
		return nil, nil
	}
}

func newTranslator(ctx context.Context) (translate.Translator, func()) {
	var translator translate.Translator
	closer := func() {}
	switch args.Translator {
	case "openai":
		translator = translate.NewOpenAI(openai.NewClient(apiKey(ctx, "OPENAI_API_KEY", "OPENAI_KEY_SECRET_NAME")), args.Model)
	case "gemini":
		genaiClient := must.OK1(genai.NewClient(ctx, option.WithAPIKey(apiKey(ctx, "GEMINI_API_KEY", "GEMINI_API_KEY_SECRET_NAME"))))
		closer = func() { genaiClient.Close() }
		model := args.Model
		if model == "" {
			model = string(translate.GenaiModelFlash)
		}
		translator = translate.NewGemini(genaiClient.GenerativeModel(model))
	case "none":
		return translate.WithNumericPassthrough(translate.Identity{}), closer
	default:
		log.Fatalf("Unknown translator %q", args.Translator)
	}
	return translate.WithNumericPassthrough(translate.WithRetry(translator, args.RetryInterval, args.Retries)), closer
}

// Direct API keys are meant for local development; deployments read them from Secret Manager.
func apiKey(ctx context.Context, keyVariable string, secretVariable string) string {
	if key := os.Getenv(keyVariable); key != "" {
		return key
	}
	secretmanagerClient := must.OK1(secretmanager.NewClient(ctx))
	defer secretmanagerClient.Close()
	return secretFromGCP(ctx, secretmanagerClient, env.RequiredStringVariable(secretVariable))
}

func secretFromGCP(ctx context.Context, secretmanagerClient *secretmanager.Client, secretName string) string {
	secretValue := must.OK1(secretmanagerClient.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
			env.RequiredStringVariable("GCP_PROJECT_ID"),
			secretName,
		),
	}))
	return string(secretValue.Payload.Data)
}
