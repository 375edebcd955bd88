package aws_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	rwaws "github.com/siwarga/rwrt-backend/internal/aws"
	"github.com/siwarga/rwrt-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailService_LocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	ls := testutil.NewTestLocalStack(t)
	ls.Cleanup(t)

	svc, err := rwaws.NewEmailService(ctx, ls.AWSConfig("unused"))
	require.NoError(t, err)

	_, err = svc.VerifyEmailIdentity(ctx)
	require.NoError(t, err)

	identities, err := ls.SES.ListIdentities(ctx, &ses.ListIdentitiesInput{})
	require.NoError(t, err)
	assert.Contains(t, identities.Identities, svc.Sender())

	err = svc.SendEmail(ctx, "warga@example.com", "Izin disetujui", "<p>Izin Anda disetujui.</p>")
	assert.NoError(t, err)
}

func TestS3Service_LocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	ls := testutil.NewTestLocalStack(t)

	svc, err := rwaws.NewS3Service(ctx, ls.AWSConfig("rwrt-test-photos"))
	require.NoError(t, err)
	require.NoError(t, svc.CreateBucket(ctx))
	require.NoError(t, svc.Ping(ctx))

	key := "reports/r1/photo.jpg"
	require.NoError(t, svc.PutObject(ctx, key, bytes.NewReader([]byte("jpeg-bytes")), "image/jpeg"))

	objects, err := svc.ListObjects(ctx, "reports/r1/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, key, *objects[0].Key)

	body, err := svc.GetObject(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	url, err := svc.GeneratePresignedURL(ctx, http.MethodGet, key, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "photo.jpg")

	require.NoError(t, svc.DeleteObject(ctx, key))
	objects, err = svc.ListObjects(ctx, "reports/r1/")
	require.NoError(t, err)
	assert.Empty(t, objects)
}
