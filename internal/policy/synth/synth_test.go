package synth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
	"github.com/ThomasGates3/ai-powered-iam/pkg/testutil"
)

func TestSynthesizeAlwaysProducesAValidDocument(t *testing.T) {
	descriptions := []string{
		"x",
		"read access to s3",
		"WRITE to S3 and DynamoDB",
		"Lambda needs to invoke another lambda",
		"nothing that matches any rule",
		"ec2 read, cloudwatch logs, s3 read and write, dynamodb read and write, lambda invoke",
	}
	for _, d := range descriptions {
		doc := Synthesize(d)
		assert.Equal(t, policydoc.Version, doc.Version, d)
		assert.NotEmpty(t, doc.Statement, d)
		assert.NoError(t, doc.Validate(), d)
	}
}

func TestSynthesizeRuleTable(t *testing.T) {
	testutil.Given(t, "a description naming s3 and dynamodb reads", func(t *testing.T) {
		doc := Synthesize("read access to s3 and dynamodb")

		testutil.Then(t, "one statement per firing rule in table order", func(t *testing.T) {
			require.Len(t, doc.Statement, 2)
			assert.Equal(t, policydoc.StringList{"s3:GetObject", "s3:ListBucket"}, doc.Statement[0].Action)
			assert.Equal(t, policydoc.StringList{"dynamodb:GetItem", "dynamodb:Query", "dynamodb:Scan"}, doc.Statement[1].Action)
		})
	})

	testutil.Given(t, "a description that matches no rule", func(t *testing.T) {
		doc := Synthesize("give my app the access it needs")

		testutil.Then(t, "the default read-only S3 statement is emitted", func(t *testing.T) {
			require.Len(t, doc.Statement, 1)
			st := doc.Statement[0]
			assert.Equal(t, policydoc.EffectAllow, st.Effect)
			assert.Equal(t, policydoc.StringList{"s3:GetObject", "s3:ListBucket"}, st.Action)
			assert.Equal(t, policydoc.StringList{"arn:aws:s3:::example-bucket/*"}, st.Resource)
		})
	})

	testutil.Given(t, "a description firing every rule", func(t *testing.T) {
		doc := Synthesize("S3 read write, DynamoDB read write, Lambda invoke, EC2 read, CloudWatch logs")

		testutil.Then(t, "all seven statements appear in order", func(t *testing.T) {
			require.Len(t, doc.Statement, 7)
			firstActions := make([]string, 0, len(doc.Statement))
			for _, st := range doc.Statement {
				firstActions = append(firstActions, st.Action[0])
			}
			assert.Equal(t, []string{
				"s3:GetObject",
				"s3:PutObject",
				"dynamodb:GetItem",
				"dynamodb:PutItem",
				"lambda:InvokeFunction",
				"ec2:DescribeInstances",
				"logs:CreateLogGroup",
			}, firstActions)
		})
	})

	t.Run("keywords need all parts present", func(t *testing.T) {
		doc := Synthesize("write to dynamodb")
		require.Len(t, doc.Statement, 1)
		assert.Equal(t, "dynamodb:PutItem", doc.Statement[0].Action[0])
	})
}

// TestSynthesizeLambdaReadingDataLake covers the fallback path end to end for a
// realistic request.
func TestSynthesizeLambdaReadingDataLake(t *testing.T) {
	doc := Synthesize("Lambda needs read-only access to S3 bucket data-lake")

	var found bool
	for _, st := range doc.Statement {
		if st.Effect != policydoc.EffectAllow || !st.Action.Contains("s3:GetObject") {
			continue
		}
		for _, r := range st.Resource {
			if strings.HasPrefix(r, "arn:aws:s3:::") {
				found = true
			}
		}
	}
	assert.True(t, found, "expected an Allow statement reading from an S3 ARN")
}

func TestGenerate(t *testing.T) {
	s := New()
	assert.Equal(t, Name, s.Name())

	doc, err := s.Generate(context.Background(), "s3 write")
	require.NoError(t, err)
	assert.Equal(t, "s3:PutObject", doc.Statement[0].Action[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Generate(ctx, "s3 write")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTable(t *testing.T) {
	t.Run("custom table", func(t *testing.T) {
		table, err := ParseTable([]byte(`
rules:
  - keywords: ["sqs", "send"]
    actions: ["sqs:SendMessage"]
    resource: "arn:aws:sqs:*:*:queue"
default:
  actions: ["sts:GetCallerIdentity"]
  resource: "*"
`))
		require.NoError(t, err)

		s := NewWithTable(table)
		assert.Equal(t, "sqs:SendMessage", s.Synthesize("SQS send").Statement[0].Action[0])
		assert.Equal(t, "sts:GetCallerIdentity", s.Synthesize("other").Statement[0].Action[0])
	})

	t.Run("normalizes keywords and actions", func(t *testing.T) {
		table, err := ParseTable([]byte(`
rules:
  - keywords: [" SQS", "sqs", "Send "]
    actions: ["sqs:SendMessage", " sqs:SendMessage"]
    resource: " * "
default:
  actions: ["sts:GetCallerIdentity"]
  resource: "*"
`))
		require.NoError(t, err)
		require.Len(t, table.Rules, 1)
		assert.Equal(t, []string{"sqs", "send"}, table.Rules[0].Keywords)
		assert.Equal(t, []string{"sqs:SendMessage"}, table.Rules[0].Actions)
		assert.Equal(t, "*", table.Rules[0].Resource)
	})

	t.Run("rejects blank keywords", func(t *testing.T) {
		_, err := ParseTable([]byte(`
rules:
  - keywords: ["  "]
    actions: ["s3:GetObject"]
    resource: "*"
default:
  actions: ["s3:GetObject"]
  resource: "*"
`))
		assert.Error(t, err)
	})

	t.Run("rejects missing default", func(t *testing.T) {
		_, err := ParseTable([]byte(`rules: []`))
		assert.Error(t, err)
	})

	t.Run("rejects incomplete rule", func(t *testing.T) {
		_, err := ParseTable([]byte(`
rules:
  - keywords: ["s3"]
default:
  actions: ["s3:GetObject"]
  resource: "*"
`))
		assert.Error(t, err)
	})
}
