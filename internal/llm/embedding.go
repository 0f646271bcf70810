package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
)

// titanEmbedRequest is Bedrock's Titan Embeddings request body.
type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

// titanEmbedResponse is Bedrock's Titan Embeddings response body.
type titanEmbedResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// BedrockEmbedder implements contracts.EmbeddingModel against a Bedrock
// Titan Embeddings model, reusing the same client construction as
// BedrockProvider.
type BedrockEmbedder struct {
	client    bedrockClientInterface
	modelID   string
	dimension int
}

// NewBedrockEmbedder creates an embedding adapter for the given Titan model
// ID (e.g. "amazon.titan-embed-text-v2:0") and region.
func NewBedrockEmbedder(ctx context.Context, modelID, region string, dimension int) (*BedrockEmbedder, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %v", err)
	}

	return &BedrockEmbedder{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   modelID,
		dimension: dimension,
	}, nil
}

// Embed generates a single embedding vector for text.
func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %v", err)
	}

	output, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding invocation failed: %v", err)
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %v", err)
	}
	return resp.Embedding, nil
}

// Dimension reports the configured embedding width, used by VectorIndex to
// size its index rather than trusting every response to agree.
func (e *BedrockEmbedder) Dimension() int {
	return e.dimension
}

var _ contracts.EmbeddingModel = (*BedrockEmbedder)(nil)
