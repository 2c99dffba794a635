package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	. "aktis-collector-monday/internal/common"
	. "aktis-collector-monday/internal/interfaces"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const maxErrorBody = 2048

type graphQLClient struct {
	client   *resty.Client
	endpoint string
}

// NewGraphQLClient returns an executor for the board API described by config
func NewGraphQLClient(config *MondayConfig) GraphQLExecutor {
	client := resty.New().
		SetTimeout(time.Duration(config.TimeoutSeconds)*time.Second).
		SetHeader("Authorization", config.APIToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent())

	if config.APIVersion != "" {
		client.SetHeader("API-Version", config.APIVersion)
	}

	return &graphQLClient{
		client:   client,
		endpoint: config.APIURL,
	}
}

func (gc *graphQLClient) Execute(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	body := map[string]interface{}{"query": query}
	if len(variables) > 0 {
		body["variables"] = variables
	}

	resp, err := gc.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(gc.endpoint)
	if err != nil {
		return nil, NewTransportError("board_api_unreachable", "failed to reach board API").
			WithContext("endpoint", gc.endpoint).
			WithCause(err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, NewUpstreamError("board_api_status", "board API returned a non-success status").
			WithStatus(resp.StatusCode()).
			WithDetails(truncateBody(resp.String()))
	}

	return parseGraphQLResponse(resp.Body())
}

// parseGraphQLResponse returns the data member, or an upstream error when the
// body carries a GraphQL error list or a legacy error_message
func parseGraphQLResponse(body []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(body) {
		return nil, NewUpstreamError("board_api_invalid_json", "board API returned a body that is not JSON").
			WithDetails(truncateBody(string(body)))
	}

	result := gjson.ParseBytes(body)

	if errorsList := result.Get("errors"); errorsList.Exists() && errorsList.IsArray() && len(errorsList.Array()) > 0 {
		return nil, NewUpstreamError("graphql_errors",
			fmt.Sprintf("board API reported %d GraphQL error(s): %s", len(errorsList.Array()), errorsList.Get("0.message").String())).
			WithDetails(truncateBody(string(body)))
	}

	if message := result.Get("error_message"); message.Exists() && message.String() != "" {
		return nil, NewUpstreamError("graphql_errors", "board API reported an error: "+message.String()).
			WithDetails(truncateBody(string(body)))
	}

	data := result.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil, NewUpstreamError("graphql_missing_data", "board API response has no data member").
			WithDetails(truncateBody(string(body)))
	}

	return json.RawMessage(data.Raw), nil
}

func truncateBody(body string) string {
	if len(body) <= maxErrorBody {
		return body
	}
	return body[:maxErrorBody] + "..."
}
