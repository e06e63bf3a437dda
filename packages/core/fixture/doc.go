// Package fixture loads recorded request/response exchanges.
//
// A fixture is a YAML document (*.exchange.yaml or *.exchange.yml) holding
// an optional inline environment and a list of exchanges. Each exchange
// names the request as it was sent, the response as it was received, and
// the pre-request and response handler scripts to replay against them.
//
// Documents are validated against an embedded JSON schema before they are
// decoded, so structural mistakes are reported with the offending path.
package fixture
