package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeJSONKeepsFieldOrderAndDropsPrivateKey(t *testing.T) {
	node := MakeTestNode("alice")
	require.True(t, node.Identity().IsOwned())

	bz, err := json.Marshal(node)
	require.NoError(t, err)
	require.Regexp(t, `^\{"metaData":.*,"endpoint":.*,"identity":\{"public-key":"[0-9a-f]{64}","name":"alice"\}\}$`, string(bz))

	decoded := &Node{}
	require.NoError(t, json.Unmarshal(bz, decoded))
	assert.True(t, node.Equal(decoded))
	assert.False(t, decoded.Identity().IsOwned())
	assert.Equal(t, node.Endpoint(), decoded.Endpoint())
	assert.Equal(t, node.MetaData(), decoded.MetaData())
}

func TestNodeEqualityIgnoresEndpointAndName(t *testing.T) {
	node := MakeTestNode("alice")
	other := NewNode(node.Identity(), NodeEndpoint{Protocol: "https", Host: "example.org", Port: 443}, NodeMetaData{})
	other.SetName("bob")

	assert.True(t, node.Equal(other))
	assert.Equal(t, node.Key(), other.Key())
	assert.False(t, node.Equal(MakeTestNode("alice")))
}

func TestIdentitySignAndVerify(t *testing.T) {
	identity, err := GenerateNodeIdentity("signer")
	require.NoError(t, err)

	sig, err := identity.Sign([]byte("challenge"))
	require.NoError(t, err)
	assert.True(t, identity.Verify([]byte("challenge"), sig))
	assert.False(t, identity.Verify([]byte("other"), sig))

	remote, err := NewNodeIdentity(identity.PublicKey(), "")
	require.NoError(t, err)
	_, err = remote.Sign([]byte("challenge"))
	assert.Error(t, err)
	assert.True(t, remote.Verify([]byte("challenge"), sig))
}

func TestAddressDerivation(t *testing.T) {
	identity, err := GenerateNodeIdentity("")
	require.NoError(t, err)

	address := identity.Address(0x68)
	require.Len(t, address.String(), 40)
	require.NoError(t, address.Validate())

	version, err := address.Version()
	require.NoError(t, err)
	assert.Equal(t, byte(0x68), version)
	assert.NotEqual(t, address, identity.Address(0x98))

	tampered := []byte(address)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}
	assert.ErrorIs(t, Address(tampered).Validate(), ErrInvalidAddress)
}

func TestEndpointURLs(t *testing.T) {
	ep, err := ParseNodeEndpoint("http://10.0.0.1:7890")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:7890/chain/height", ep.URL(APIChainHeight))
	assert.Equal(t, "http://10.0.0.1:7890/time-sync/network-time", ep.URL(APITimeSync))

	_, err = ParseNodeEndpoint("ftp://10.0.0.1:21")
	assert.Error(t, err)
	_, err = NewNodeEndpoint("http", "", 80)
	assert.Error(t, err)
}

func TestMetaDataCompatibility(t *testing.T) {
	local := NodeMetaData{Version: "0.6.100", NetworkID: 104}

	assert.NoError(t, local.CompatibleWith(NodeMetaData{Version: "0.7.1", NetworkID: 104}))
	assert.Error(t, local.CompatibleWith(NodeMetaData{Version: "0.6.100", NetworkID: 152}))
	assert.Error(t, local.CompatibleWith(NodeMetaData{Version: "1.0.0", NetworkID: 104}))
	assert.Error(t, local.CompatibleWith(NodeMetaData{Version: "garbage", NetworkID: 104}))
}

func TestInteractionResultFromValidation(t *testing.T) {
	testCases := map[ValidationResult]NodeInteractionResult{
		ValidationSuccess:                        InteractionSuccess,
		ValidationNeutral:                        InteractionNeutral,
		ValidationFailureEntityUnusableOutOfSync: InteractionNeutral,
		ValidationFailureTransactionCacheTooFull: InteractionNeutral,
		ValidationFailureUnknown:                 InteractionFailure,
		ValidationFailureChainInvalid:            InteractionFailure,
		ValidationFailureSignatureNotVerifiable:  InteractionFailure,
		ValidationFailureHashExists:              InteractionFailure,
	}

	for validation, expected := range testCases {
		assert.Equal(t, expected, InteractionResultFromValidation(validation), validation.String())
	}
}

func TestNodeStatusText(t *testing.T) {
	for _, status := range append(TrackedNodeStatuses, NodeStatusUnknown) {
		text, err := status.MarshalText()
		require.NoError(t, err)

		var parsed NodeStatus
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, status, parsed)
	}

	assert.True(t, NodeStatusInactive.IsBlacklisted())
	assert.True(t, NodeStatusFailure.IsBlacklisted())
	assert.False(t, NodeStatusBusy.IsBlacklisted())
	assert.False(t, NodeStatusActive.IsBlacklisted())
}

func TestAggregateValidationResults(t *testing.T) {
	require.Equal(t, ValidationNeutral, AggregateValidationResults())
	require.Equal(t, ValidationSuccess, AggregateValidationResults(ValidationSuccess, ValidationSuccess))
	require.Equal(t, ValidationNeutral, AggregateValidationResults(ValidationSuccess, ValidationNeutral))
	require.Equal(t, ValidationFailurePastDeadline,
		AggregateValidationResults(ValidationNeutral, ValidationFailurePastDeadline, ValidationFailureHashExists))
}

func TestParseNode(t *testing.T) {
	node := MakeTestNode("seed")

	parsed, err := ParseNode(node.Key() + "@http://10.0.0.1:7890")
	require.NoError(t, err)
	assert.True(t, node.Equal(parsed))
	assert.Equal(t, NodeEndpoint{Protocol: "http", Host: "10.0.0.1", Port: 7890}, parsed.Endpoint())

	for _, bad := range []string{
		"http://10.0.0.1:7890",
		"zz@http://10.0.0.1:7890",
		"abcd@http://10.0.0.1:7890",
		node.Key() + "@ftp://10.0.0.1:21",
	} {
		_, err := ParseNode(bad)
		assert.Error(t, err, bad)
	}
}
