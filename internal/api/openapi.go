package api

// Spec OpenAPI minimal en JSON para Swagger.
const openAPISpec = `{
  "openapi": "3.0.0",
  "info": {
    "title": "Store Sync Service API",
    "version": "1.0.0"
  },
  "paths": {
    "/health": {
      "get": { "summary": "Health check", "responses": { "200": { "description": "Service is healthy" } } }
    },
    "/api/queue": {
      "get": { "summary": "Work queue statistics", "responses": { "200": { "description": "Queue stats" } } },
      "delete": { "summary": "Clear the work queue", "responses": { "200": { "description": "Number of cleared entries" } } }
    },
    "/api/queue/flush": {
      "post": { "summary": "Drain the work queue now", "responses": { "200": { "description": "Flush result" } } }
    },
    "/api/pending/{kind}": {
      "get": {
        "summary": "Products pending a sync of the given kind",
        "parameters": [
          { "name": "kind", "in": "path", "required": true,
            "schema": { "type": "string", "enum": ["full_product", "price_and_quantity", "quantity", "full", "light"] } }
        ],
        "responses": { "200": { "description": "Pending count" }, "400": { "description": "Unknown kind" } }
      }
    },
    "/api/sync/run": {
      "post": { "summary": "Run one scheduled pass now", "responses": { "200": { "description": "Pass result" } } }
    },
    "/api/sync/status": {
      "get": { "summary": "Last and next scheduled pass", "responses": { "200": { "description": "Cron status" } } }
    },
    "/api/sync/orders": {
      "post": { "summary": "Quantity-sync products of the latest orders", "responses": { "202": { "description": "Job started" }, "200": { "description": "Precondition failed" } } }
    },
    "/api/sync/skus": {
      "post": {
        "summary": "Full-sync products by SKU",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/SkuSyncRequest" } } } },
        "responses": { "200": { "description": "SKU sync result" }, "400": { "description": "Invalid body" } }
      }
    },
    "/api/orders/{orderID}/enqueue": {
      "post": {
        "summary": "Queue the products of an order",
        "parameters": [ { "name": "orderID", "in": "path", "required": true, "schema": { "type": "integer" } } ],
        "responses": { "200": { "description": "Number of newly queued products" } }
      }
    },
    "/api/orders/sync-status": {
      "get": {
        "summary": "Sync status of the products in the latest orders (cached 5 minutes)",
        "parameters": [ { "name": "refresh", "in": "query", "required": false, "schema": { "type": "boolean" } } ],
        "responses": { "200": { "description": "Per product, per selected store report" } }
      }
    },
    "/api/products/{productID}/resync": {
      "post": {
        "summary": "Push price and quantity of one product now",
        "parameters": [ { "name": "productID", "in": "path", "required": true, "schema": { "type": "integer" } } ],
        "responses": { "200": { "description": "Re-sync outcome" } }
      }
    },
    "/api/categories/sync": {
      "post": { "summary": "Sync all categories", "responses": { "202": { "description": "Job started" } } }
    },
    "/api/categories/assignments": {
      "post": { "summary": "Rewrite product category assignments", "responses": { "202": { "description": "Job started" } } }
    },
    "/api/jobs/{name}": {
      "get": {
        "summary": "Background job status",
        "parameters": [ { "name": "name", "in": "path", "required": true, "schema": { "type": "string" } } ],
        "responses": { "200": { "description": "Job status" } }
      }
    },
    "/api/settings": {
      "get": { "summary": "Sync settings", "responses": { "200": { "description": "Settings" } } },
      "put": {
        "summary": "Update sync settings",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/SyncSettings" } } } },
        "responses": { "200": { "description": "Saved" }, "400": { "description": "Validation failed" } }
      }
    }
  },
  "components": {
    "schemas": {
      "SkuSyncRequest": {
        "type": "object",
        "properties": { "skus": { "type": "string", "description": "comma or newline separated" } }
      },
      "SyncSettings": {
        "type": "object",
        "properties": {
          "cron_batch_size": { "type": "integer", "minimum": 1, "maximum": 500 },
          "cron_batch_size_offpeak": { "type": "integer", "minimum": 1, "maximum": 500 },
          "cron_selected_stores": { "type": "array", "items": { "type": "string", "format": "uri" } },
          "auto_sync_orders": { "type": "boolean" },
          "force_full_sync": { "type": "boolean" }
        }
      }
    }
  }
}`
