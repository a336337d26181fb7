// Package advisor contains the alternative advisor backend that asks an
// OpenAI chat model directly, with the latest reading as context.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/LeonardoBeccarini/invernadero/internal/model"
	"github.com/LeonardoBeccarini/invernadero/internal/services/monitor/app"
)

// Answer is the structured output requested from the model.
type Answer struct {
	Consejo string `json:"consejo" jsonschema_description:"Consejo breve para el operario del invernadero, en español"`
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // vuoto: endpoint ufficiale
	Logger  *log.Logger
}

// OpenAI implements app.Advisor.
type OpenAI struct {
	client  openai.Client
	chat    openai.ChatModel
	schema  interface{}
	reading app.ReadingSource
	bust    *app.CacheBuster
	log     *log.Logger
}

func generateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// NewOpenAI needs an API key; reading supplies the context for each question.
func NewOpenAI(cfg Config, reading app.ReadingSource) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	chatModel := openai.ChatModelGPT4o
	if cfg.Model != "" {
		chatModel = openai.ChatModel(cfg.Model)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client:  openai.NewClient(opts...),
		chat:    chatModel,
		schema:  generateSchema[Answer](),
		reading: reading,
		bust:    app.NewCacheBuster(),
		log:     cfg.Logger,
	}, nil
}

const systemPrompt = `Eres el asistente agronómico de un invernadero monitorizado con sensores de temperatura (°C), humedad relativa (%%) y luz (Lx).
Responde siempre en español, con consejos prácticos para el operario.
%s
Última lectura de sensores: %s
Responde estrictamente en JSON.`

const (
	terseHint   = "Responde en una o dos frases cortas: el operario lee desde el móvil."
	verboseHint = "Puedes explicar el razonamiento en un párrafo breve."
	generalAsk  = "Resume el estado general del invernadero y di si hace falta alguna acción."
)

// QueryAdvisor satisfies app.Advisor. An empty model answer is "no answer",
// not an error, like a missing "consejo" from the remote endpoint.
func (o *OpenAI) QueryAdvisor(ctx context.Context, q model.AdvisorQuery) (model.AdvisorAnswer, error) {
	hint := verboseHint
	if q.Terse {
		hint = terseHint
	}
	question := strings.TrimSpace(q.Question)
	if question == "" {
		question = generalAsk
	}

	chat, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(systemPrompt, hint, o.currentReading(ctx))),
			openai.UserMessage(question),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "consejo_invernadero",
					Description: openai.String("Consejo para el operario del invernadero"),
					Schema:      o.schema,
					Strict:      openai.Bool(true),
				},
			},
		},
		Model: o.chat,
	})
	if err != nil {
		return model.AdvisorAnswer{}, fmt.Errorf("%w: openai: %w", model.ErrRequestFailed, err)
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return model.AdvisorAnswer{}, nil
	}

	var ans Answer
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &ans); err != nil {
		o.log.Printf("advisor: bad model output %q: %v", chat.Choices[0].Message.Content, err)
		return model.AdvisorAnswer{}, fmt.Errorf("%w: decode openai answer: %w", model.ErrRequestFailed, err)
	}
	if strings.TrimSpace(ans.Consejo) == "" {
		return model.AdvisorAnswer{}, nil
	}
	return model.NewAdvisorAnswer(ans.Consejo), nil
}

// currentReading describes the latest reading; without one the model is told so.
func (o *OpenAI) currentReading(ctx context.Context) string {
	if o.reading == nil {
		return "no disponible"
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	hist, err := o.reading.FetchLatestReading(ctx, o.bust.Next())
	if err != nil {
		o.log.Printf("advisor: no reading for context: %v", err)
		return "no disponible"
	}
	r, ok := model.Latest(hist)
	if !ok {
		return "sin datos"
	}
	d := r.Display("desconocido")
	return fmt.Sprintf("temperatura %s °C, humedad %s %%, luz %s, hora %s", d.Temperature, d.Humidity, d.Light, d.Time)
}
